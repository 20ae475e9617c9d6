// Package pipeline runs one conversion: normalize the batch, then transcribe
// every unit remotely or recognise it locally, accumulating results in
// upload order.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/metrics"
	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/normalize"
	"github.com/amrsdek/MedMate-App/internal/ocr"
)

// Normalizer turns a batch into transcription units.
type Normalizer interface {
	Normalize(ctx context.Context, batch model.Batch) ([]model.NormalizedUnit, error)
}

// Transcriber is the remote transcription client.
type Transcriber interface {
	Transcribe(ctx context.Context, unit model.NormalizedUnit, instructions string) (string, error)
}

// Recognizer is the local fallback.
type Recognizer interface {
	Available() error
	Recognize(ctx context.Context, units []model.NormalizedUnit, opts ...ocr.RecognizeOption) (string, error)
}

// Ledger records run metadata.
type Ledger interface {
	CreateRun(ctx context.Context, sessionID string, mode model.Mode, items int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, out model.RunOutcome) error
}

// StatusFunc receives progress updates.
type StatusFunc func(model.Status)

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	normalizer Normalizer
	remote     Transcriber
	local      Recognizer
	ledger     Ledger
	metrics    *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(o *Orchestrator) { o.normalizer = n }
}

// WithTranscriber sets the remote client. Without one, AI mode fails with a
// recoverable FailureRemoteDisabled.
func WithTranscriber(t Transcriber) Option {
	return func(o *Orchestrator) { o.remote = t }
}

// WithRecognizer sets the local fallback.
func WithRecognizer(r Recognizer) Option {
	return func(o *Orchestrator) { o.local = r }
}

// WithLedger records every run.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithMetrics reports runs to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{normalizer: normalize.New()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RemoteEnabled reports whether AI mode can run.
func (o *Orchestrator) RemoteEnabled() bool {
	return o.remote != nil
}

// LocalAvailable reports whether local fallback mode can run. The error
// matches ocr.ErrRecognitionUnavailable.
func (o *Orchestrator) LocalAvailable() error {
	if o.local == nil {
		return errRecognizerMissing
	}
	return o.local.Available()
}

// RunOptions are per-run settings.
type RunOptions struct {
	SessionID string
	Title     string
	OnStatus  StatusFunc
}

// RunOption configures a single run.
type RunOption func(*RunOptions)

// WithSession tags the ledger entry with a session id.
func WithSession(id string) RunOption {
	return func(r *RunOptions) { r.SessionID = id }
}

// WithTitle sets the document title.
func WithTitle(title string) RunOption {
	return func(r *RunOptions) { r.Title = title }
}

// WithStatus publishes progress to fn.
func WithStatus(fn StatusFunc) RunOption {
	return func(r *RunOptions) { r.OnStatus = fn }
}

// Run converts batch in the given mode. The returned document is never nil:
// on failure it holds every result obtained before the failure, and the
// error is a *Failure.
func (o *Orchestrator) Run(ctx context.Context, batch model.Batch, instr model.Instructions, mode model.Mode, opts ...RunOption) (*model.AccumulatedDocument, error) {
	var ro RunOptions
	for _, opt := range opts {
		opt(&ro)
	}
	publish := func(s model.Status) {
		if ro.OnStatus != nil {
			ro.OnStatus(s)
		}
	}

	log := zap.L().With(
		zap.String("mode", string(mode)),
		zap.String("session", ro.SessionID),
		zap.Int("items", batch.Len()),
	)
	log.Info("pipeline: starting run")

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RunsActive.Inc()
		defer o.metrics.RunsActive.Dec()
	}

	runID := o.createRun(ctx, ro.SessionID, mode, batch.Len(), log)
	doc := model.NewDocument(ro.Title)

	publish(model.Status{Phase: model.PhaseNormalizing})
	units, err := o.normalizer.Normalize(ctx, batch)
	if err != nil {
		f := &Failure{Kind: FailureInternal, Err: err}
		var de *normalize.DecodeError
		if errors.As(err, &de) {
			f.Kind = FailureDecode
		}
		return doc, o.finish(ctx, runID, mode, start, f, doc, 0, log, publish)
	}

	var fail *Failure
	switch mode {
	case model.ModeLocalFallback:
		fail = o.recognize(ctx, units, doc, publish)
	default:
		fail = o.transcribe(ctx, units, instr, doc, publish)
	}
	return doc, o.finish(ctx, runID, mode, start, fail, doc, len(units), log, publish)
}

func (o *Orchestrator) transcribe(ctx context.Context, units []model.NormalizedUnit, instr model.Instructions, doc *model.AccumulatedDocument, publish StatusFunc) *Failure {
	if o.remote == nil {
		return &Failure{Kind: FailureRemoteDisabled, Recoverable: true, Units: len(units), Err: errRemoteDisabled}
	}
	for i, u := range units {
		publish(model.Status{Phase: model.PhaseTranscribing, Unit: i + 1, Units: len(units), Label: u.Label()})

		text, err := o.remote.Transcribe(ctx, u, instr.Text)
		if err != nil {
			f := remoteFailure(err, i, len(units))
			o.countRemote(string(f.Kind))
			return f
		}
		o.countRemote("success")
		doc.Append(model.TranscriptionResult{
			Label:    u.Label(),
			Position: u.Position,
			Source:   model.SourceRemote,
			Text:     text,
		})
	}
	return nil
}

func (o *Orchestrator) recognize(ctx context.Context, units []model.NormalizedUnit, doc *model.AccumulatedDocument, publish StatusFunc) *Failure {
	if o.local == nil {
		return localFailure(errRecognizerMissing, 0, len(units))
	}
	completed := 0
	_, err := o.local.Recognize(ctx, units,
		ocr.OnUnitStart(func(i int, u model.NormalizedUnit) {
			publish(model.Status{Phase: model.PhaseRecognizing, Unit: i + 1, Units: len(units), Label: u.Label()})
		}),
		ocr.OnUnitDone(func(_ int, u model.NormalizedUnit, text string) {
			doc.Append(model.TranscriptionResult{
				Label:    u.Label(),
				Position: u.Position,
				Source:   model.SourceLocal,
				Text:     text,
			})
			completed++
		}),
	)
	if err != nil {
		return localFailure(err, completed, len(units))
	}
	return nil
}

func (o *Orchestrator) createRun(ctx context.Context, sessionID string, mode model.Mode, items int, log *zap.Logger) string {
	if o.ledger == nil {
		return ""
	}
	run, err := o.ledger.CreateRun(ctx, sessionID, mode, items)
	if err != nil {
		log.Warn("pipeline: failed to record run", zap.Error(err))
		return ""
	}
	return run.ID
}

// finish records the outcome and returns fail as an error, or nil.
func (o *Orchestrator) finish(ctx context.Context, runID string, mode model.Mode, start time.Time, fail *Failure, doc *model.AccumulatedDocument, units int, log *zap.Logger, publish StatusFunc) error {
	out := model.RunOutcome{Units: units, Completed: len(doc.Results), Status: model.RunStatusComplete}
	outcome := "complete"
	if fail != nil {
		out.Status = model.RunStatusFailed
		outcome = string(fail.Kind)
		if fail.Recoverable {
			out.Status = model.RunStatusRecoverable
		}
		out.Error = fail.Error()
	}

	if o.ledger != nil && runID != "" {
		if err := o.ledger.FinishRun(context.WithoutCancel(ctx), runID, out); err != nil {
			log.Warn("pipeline: failed to finish run", zap.String("run_id", runID), zap.Error(err))
		}
	}
	if o.metrics != nil {
		o.metrics.RunsTotal.WithLabelValues(string(mode), outcome).Inc()
		o.metrics.RunDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}

	if fail != nil {
		log.Error("pipeline: run failed",
			zap.String("run_id", runID),
			zap.String("kind", string(fail.Kind)),
			zap.Bool("recoverable", fail.Recoverable),
			zap.Int("completed", out.Completed),
			zap.Int("units", units),
			zap.Error(fail.Err),
		)
		publish(model.Status{Phase: model.PhaseFailed, Unit: out.Completed, Units: units})
		return fail
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", runID),
		zap.Int("units", units),
		zap.Duration("elapsed", time.Since(start)),
	)
	publish(model.Status{Phase: model.PhaseDone, Unit: units, Units: units})
	return nil
}

func (o *Orchestrator) countRemote(outcome string) {
	if o.metrics != nil {
		o.metrics.RemoteCalls.WithLabelValues(outcome).Inc()
	}
}
