package transcribe

import (
	"context"

	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/pkg/gemini"
)

// GeminiEngine uploads units through the files API and generates against
// the uploaded file reference.
type GeminiEngine struct {
	client gemini.Client
	model  string
}

// NewGeminiEngine creates an engine over a gemini client.
func NewGeminiEngine(client gemini.Client, modelName string) *GeminiEngine {
	return &GeminiEngine{client: client, model: modelName}
}

func (e *GeminiEngine) Name() string { return "gemini" }

func (e *GeminiEngine) Upload(ctx context.Context, unit model.NormalizedUnit) (Handle, error) {
	f, err := e.client.UploadFile(ctx, unit.Label(), unit.MIMEType(), unit.Data)
	if err != nil {
		return Handle{}, err
	}
	return Handle{ID: f.Name, URI: f.URI, MIMEType: f.MimeType}, nil
}

func (e *GeminiEngine) State(ctx context.Context, h Handle) (State, error) {
	f, err := e.client.GetFile(ctx, h.ID)
	if err != nil {
		return StateFailed, err
	}
	switch f.State {
	case gemini.StateActive:
		return StateReady, nil
	case gemini.StateFailed:
		return StateFailed, nil
	default:
		return StateProcessing, nil
	}
}

func (e *GeminiEngine) Generate(ctx context.Context, instructions string, h Handle) (string, error) {
	f := &gemini.File{Name: h.ID, URI: h.URI, MimeType: h.MIMEType}
	resp, err := e.client.GenerateContent(ctx, e.model, gemini.NewFileRequest(instructions, f))
	if err != nil {
		return "", err
	}

	zap.L().Info("cost attribution",
		zap.String("model", e.model),
		zap.String("unit", h.Label),
		zap.Int("input_tokens", resp.UsageMetadata.PromptTokenCount),
		zap.Int("output_tokens", resp.UsageMetadata.CandidatesTokenCount),
	)
	if err := resp.Err(); err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (e *GeminiEngine) Release(ctx context.Context, h Handle) error {
	return e.client.DeleteFile(ctx, h.ID)
}
