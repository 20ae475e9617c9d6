package transcribe

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/pkg/anthropic"
)

// AnthropicEngine sends each unit inline as a PDF document block. There is
// no remote file store, so Upload stages the bytes locally and State is
// ready as soon as they are staged.
type AnthropicEngine struct {
	client    anthropic.Client
	model     string
	maxTokens int64

	mu     sync.Mutex
	staged map[string][]byte
}

// NewAnthropicEngine creates an engine over an anthropic client.
func NewAnthropicEngine(client anthropic.Client, modelName string, maxTokens int64) *AnthropicEngine {
	return &AnthropicEngine{
		client:    client,
		model:     modelName,
		maxTokens: maxTokens,
		staged:    make(map[string][]byte),
	}
}

func (e *AnthropicEngine) Name() string { return "anthropic" }

func (e *AnthropicEngine) Upload(_ context.Context, unit model.NormalizedUnit) (Handle, error) {
	if len(unit.Data) == 0 {
		return Handle{}, eris.New("anthropic engine: empty unit")
	}
	id := uuid.NewString()

	e.mu.Lock()
	e.staged[id] = unit.Data
	e.mu.Unlock()

	return Handle{ID: id, MIMEType: unit.MIMEType()}, nil
}

func (e *AnthropicEngine) State(_ context.Context, h Handle) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.staged[h.ID]; !ok {
		return StateFailed, nil
	}
	return StateReady, nil
}

func (e *AnthropicEngine) Generate(ctx context.Context, instructions string, h Handle) (string, error) {
	e.mu.Lock()
	data, ok := e.staged[h.ID]
	e.mu.Unlock()
	if !ok {
		return "", eris.Errorf("anthropic engine: unknown handle %s", h.ID)
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages: []anthropic.Message{{
			Role:      "user",
			Content:   instructions,
			Documents: [][]byte{data},
		}},
	})
	if err != nil {
		return "", err
	}

	resp.Usage.LogCost(e.model, h.Label)
	return resp.Text(), nil
}

func (e *AnthropicEngine) Release(_ context.Context, h Handle) error {
	e.mu.Lock()
	delete(e.staged, h.ID)
	e.mu.Unlock()
	return nil
}
