// Package feedback records user comments in the run ledger and forwards them
// to an optional webhook.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/config"
	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/resilience"
)

// MaxTextLength bounds a single comment, in runes.
const MaxTextLength = 4000

var (
	// ErrInvalid matches every validation failure.
	ErrInvalid = eris.New("feedback: invalid comment")
	// ErrEmpty is returned for a comment with no text.
	ErrEmpty = eris.Wrap(ErrInvalid, "empty text")
)

// Saver persists comments.
type Saver interface {
	SaveFeedback(ctx context.Context, c *model.Comment) error
}

// Result reports what happened to a submitted comment.
type Result struct {
	ID        string `json:"id"`
	Forwarded bool   `json:"forwarded"`
}

// Service accepts feedback submissions.
type Service struct {
	store      Saver
	webhookURL string
	client     *http.Client
	retry      resilience.RetryConfig
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used for webhook delivery.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithRetry overrides the webhook retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// NewService creates a Service. An empty webhook URL disables forwarding.
func NewService(store Saver, cfg config.FeedbackConfig, opts ...Option) *Service {
	s := &Service{
		store:      store,
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		client:     &http.Client{Timeout: 10 * time.Second},
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("feedback webhook", "forward")
	}
	return s
}

// ForwardingEnabled reports whether a webhook is configured.
func (s *Service) ForwardingEnabled() bool {
	return s.webhookURL != ""
}

// Submit stores the comment, then forwards it. Forwarding failures are
// logged and reported in Result, never returned as errors.
func (s *Service) Submit(ctx context.Context, c *model.Comment) (*Result, error) {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return nil, ErrEmpty
	}
	if utf8.RuneCountInString(c.Text) > MaxTextLength {
		return nil, eris.Wrapf(ErrInvalid, "text exceeds %d characters", MaxTextLength)
	}
	if c.Rating < 0 || c.Rating > 5 {
		return nil, eris.Wrapf(ErrInvalid, "rating %d out of range 0-5", c.Rating)
	}

	if err := s.store.SaveFeedback(ctx, c); err != nil {
		return nil, eris.Wrap(err, "feedback: save")
	}
	res := &Result{ID: c.ID}

	if !s.ForwardingEnabled() {
		return res, nil
	}
	if err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.sendWebhook(ctx, c)
	}); err != nil {
		zap.L().Error("feedback: webhook delivery failed",
			zap.String("id", c.ID),
			zap.Error(err),
		)
		return res, nil
	}
	zap.L().Info("feedback: forwarded", zap.String("id", c.ID))
	res.Forwarded = true
	return res, nil
}

func (s *Service) sendWebhook(ctx context.Context, c *model.Comment) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "feedback: marshal comment")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "feedback: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Transport failures carry no status; treat them as retryable.
		return resilience.NewTransientError(eris.Wrap(err, "feedback: webhook request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resilience.NewHTTPError("feedback webhook", resp.StatusCode, body)
	}
	return nil
}
