package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/feedback"
	"github.com/amrsdek/MedMate-App/internal/metrics"
	"github.com/amrsdek/MedMate-App/internal/ocr"
	"github.com/amrsdek/MedMate-App/internal/pipeline"
	"github.com/amrsdek/MedMate-App/internal/store"
	"github.com/amrsdek/MedMate-App/internal/transcribe"
)

// appEnv holds the initialized store, clients and orchestrator shared by
// the convert and serve commands.
type appEnv struct {
	Store    store.Store
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Orchestrator
	Feedback *feedback.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens and migrates the store, builds the remote and local
// transcription paths, and wires them into an Orchestrator. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	m := metrics.New()
	opts := []pipeline.Option{
		pipeline.WithLedger(st),
		pipeline.WithMetrics(m),
	}

	remote, err := initTranscriber(m)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if remote != nil {
		opts = append(opts, pipeline.WithTranscriber(remote))
	}

	rec, err := ocr.NewRecognizer(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init ocr")
	}
	fallback := ocr.NewFallback(rec, ocr.WithPageObserver(func() { m.FallbackPages.Inc() }))
	if err := fallback.Available(); err != nil {
		zap.L().Warn("local recognition unavailable", zap.Error(err))
	}
	opts = append(opts, pipeline.WithRecognizer(fallback))

	return &appEnv{
		Store:    st,
		Metrics:  m,
		Pipeline: pipeline.New(opts...),
		Feedback: feedback.NewService(st, cfg.Feedback),
	}, nil
}

// initTranscriber returns nil without error when no API key is configured.
func initTranscriber(m *metrics.Metrics) (*transcribe.Client, error) {
	client, err := transcribe.NewClientFromConfig(cfg.Engine,
		transcribe.WithPollObserver(func(transcribe.State) { m.PollsTotal.Inc() }),
	)
	if errors.Is(err, transcribe.ErrRemoteDisabled) {
		zap.L().Warn("remote transcription disabled; only local mode is available",
			zap.String("provider", cfg.Engine.Provider),
		)
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "init transcriber")
	}
	zap.L().Info("remote transcription enabled",
		zap.String("provider", cfg.Engine.Provider),
		zap.String("engine", client.Engine().Name()),
	)
	return client, nil
}

// initStore opens the store selected by the config and checks it is
// reachable.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "ping store")
	}
	return st, nil
}
