package transcribe

import (
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/amrsdek/MedMate-App/internal/config"
	"github.com/amrsdek/MedMate-App/pkg/anthropic"
	"github.com/amrsdek/MedMate-App/pkg/gemini"
)

// ErrRemoteDisabled is returned when no API key is configured for the
// selected engine. Remote mode is unavailable but the service still starts.
var ErrRemoteDisabled = eris.New("transcribe: remote engine disabled (no api key)")

// NewEngine builds the engine selected by cfg.Provider.
func NewEngine(cfg config.EngineConfig) (Engine, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.Gemini.Key == "" {
			return nil, ErrRemoteDisabled
		}
		var opts []gemini.Option
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		return NewGeminiEngine(gemini.NewClient(cfg.Gemini.Key, opts...), cfg.Gemini.Model), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, ErrRemoteDisabled
		}
		var opts []option.RequestOption
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		client := anthropic.NewClient(cfg.Anthropic.Key, opts...)
		return NewAnthropicEngine(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	default:
		return nil, eris.Errorf("transcribe: unknown engine provider %q", cfg.Provider)
	}
}

// NewClientFromConfig builds the engine and wraps it in a Client using the
// configured poll settings.
func NewClientFromConfig(cfg config.EngineConfig, opts ...Option) (*Client, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{WithPollInterval(cfg.PollInterval()), WithMaxPolls(cfg.MaxPolls)}
	return NewClient(engine, append(base, opts...)...), nil
}
