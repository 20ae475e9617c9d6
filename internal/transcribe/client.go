package transcribe

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/model"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 60
	releaseTimeout      = 15 * time.Second
)

// Client drives one Engine through upload, readiness polling, generation and
// release. It never retries beyond the readiness poll.
type Client struct {
	engine       Engine
	pollInterval time.Duration
	maxPolls     int
	onPoll       func(State)
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval sets the delay between readiness checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxPolls sets how many readiness checks are made before giving up.
func WithMaxPolls(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPolls = n
		}
	}
}

// WithPollObserver registers a callback invoked after every readiness check.
func WithPollObserver(fn func(State)) Option {
	return func(c *Client) {
		c.onPoll = fn
	}
}

// NewClient creates a Client over engine.
func NewClient(engine Engine, opts ...Option) *Client {
	c := &Client{
		engine:       engine,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engine returns the underlying engine.
func (c *Client) Engine() Engine {
	return c.engine
}

// Transcribe uploads unit, waits until the engine reports it ready, and
// returns the generated text verbatim. Failures are *Error values.
func (c *Client) Transcribe(ctx context.Context, unit model.NormalizedUnit, instructions string) (string, error) {
	label := unit.Label()
	log := zap.L().With(
		zap.String("engine", c.engine.Name()),
		zap.String("unit", label),
	)

	h, err := c.engine.Upload(ctx, unit)
	if err != nil {
		return "", classify(label, eris.Wrap(err, "upload"))
	}
	h.Label = label
	defer c.release(ctx, h, log)

	log.Debug("transcribe: uploaded", zap.String("handle", h.ID))

	if err := c.awaitReady(ctx, h); err != nil {
		return "", err
	}

	text, err := c.engine.Generate(ctx, instructions, h)
	if err != nil {
		return "", classify(label, eris.Wrap(err, "generate"))
	}

	log.Info("transcribe: unit complete", zap.Int("chars", len(text)))
	return text, nil
}

func (c *Client) awaitReady(ctx context.Context, h Handle) error {
	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		state, err := c.engine.State(ctx, h)
		if err != nil {
			return classify(h.Label, eris.Wrap(err, "poll state"))
		}
		if c.onPoll != nil {
			c.onPoll(state)
		}

		switch state {
		case StateReady:
			return nil
		case StateFailed:
			return &Error{Kind: KindRemote, Unit: h.Label, Err: eris.New("remote processing failed")}
		}

		if attempt == c.maxPolls {
			break
		}
		select {
		case <-ctx.Done():
			return &Error{Kind: KindRemote, Unit: h.Label, Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}
	}

	return &Error{
		Kind: KindTimeout,
		Unit: h.Label,
		Err:  eris.Errorf("not ready after %d polls", c.maxPolls),
	}
}

// release runs on every exit path, detached from ctx cancellation.
func (c *Client) release(ctx context.Context, h Handle, log *zap.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := c.engine.Release(rctx, h); err != nil {
		log.Warn("transcribe: release failed", zap.String("handle", h.ID), zap.Error(err))
	}
}
