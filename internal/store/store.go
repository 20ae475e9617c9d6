package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/config"
	"github.com/amrsdek/MedMate-App/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store is the run ledger. It records run metadata and feedback, never
// document content.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, sessionID string, mode model.Mode, items int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, out model.RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Feedback
	SaveFeedback(ctx context.Context, c *model.Comment) error
	ListFeedback(ctx context.Context, limit int) ([]model.Comment, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, cfg.DatabaseURL, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// poolConfig maps the store settings onto pool tuning. Zero values keep the
// pool defaults.
func poolConfig(cfg config.StoreConfig) *PoolConfig {
	return &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}
}

func listLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
