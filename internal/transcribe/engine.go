// Package transcribe sends normalized units to a remote multimodal engine
// and returns the Markdown it produces.
package transcribe

import (
	"context"

	"github.com/amrsdek/MedMate-App/internal/model"
)

// State is the readiness of an uploaded unit on the remote side.
type State int

const (
	StateProcessing State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle identifies a unit uploaded to an engine.
type Handle struct {
	ID       string
	URI      string
	MIMEType string
	Label    string
}

// Engine is one remote vendor. Implementations report vendor failures with
// their HTTP status preserved in the error chain (see resilience.StatusCode).
type Engine interface {
	Name() string
	Upload(ctx context.Context, unit model.NormalizedUnit) (Handle, error)
	State(ctx context.Context, h Handle) (State, error)
	Generate(ctx context.Context, instructions string, h Handle) (string, error)
	Release(ctx context.Context, h Handle) error
}
