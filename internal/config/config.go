package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Feedback FeedbackConfig `yaml:"feedback" mapstructure:"feedback"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// EngineConfig selects and configures the remote transcription engine.
type EngineConfig struct {
	Provider       string          `yaml:"provider" mapstructure:"provider"`
	PollIntervalMs int             `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	MaxPolls       int             `yaml:"max_polls" mapstructure:"max_polls"`
	Gemini         GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic      AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// PollInterval returns the readiness poll interval as a duration.
func (e EngineConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalMs) * time.Millisecond
}

// GeminiConfig holds generative language API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OCRConfig configures local text recognition.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	Languages     string `yaml:"languages" mapstructure:"languages"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// FeedbackConfig configures the feedback side channel.
type FeedbackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB       int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	UploadsPerMinute  int      `yaml:"uploads_per_minute" mapstructure:"uploads_per_minute"`
	SessionTTLMinutes int      `yaml:"session_ttl_minutes" mapstructure:"session_ttl_minutes"`
	AllowedOrigins    []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// for config.yaml in the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("MEDMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.provider", "gemini")
	v.SetDefault("engine.poll_interval_ms", 2000)
	v.SetDefault("engine.max_polls", 60)
	v.SetDefault("engine.gemini.key", "")
	v.SetDefault("engine.gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("engine.gemini.model", "gemini-1.5-flash")
	v.SetDefault("engine.anthropic.key", "")
	v.SetDefault("engine.anthropic.base_url", "")
	v.SetDefault("engine.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("engine.anthropic.max_tokens", 8192)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.languages", "eng+ara")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "medmate.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("feedback.webhook_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.uploads_per_minute", 6)
	v.SetDefault("server.session_ttl_minutes", 120)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings needed by the given command. Missing API
// keys or webhook URLs are not errors: they disable the matching feature.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Engine.Provider {
	case "gemini", "anthropic":
	default:
		errs = append(errs, "engine.provider must be gemini or anthropic")
	}
	if c.Engine.PollIntervalMs <= 0 {
		errs = append(errs, "engine.poll_interval_ms must be > 0")
	}
	if c.Engine.MaxPolls <= 0 {
		errs = append(errs, "engine.max_polls must be > 0")
	}
	switch c.OCR.Provider {
	case "tesseract", "gosseract":
	default:
		errs = append(errs, "ocr.provider must be tesseract or gosseract")
	}

	if c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
		errs = append(errs, "store.min_conns must be <= store.max_conns")
	}

	switch mode {
	case "convert":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		if c.Server.SessionTTLMinutes <= 0 {
			errs = append(errs, "server.session_ttl_minutes must be > 0")
		}
	case "migrate":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
