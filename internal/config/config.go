// Package config holds the application configuration of the companion.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lewisedginton/wellbeing_companion/pkg/config"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// Memory backends
const (
	MemoryBackendMemory   = "memory"
	MemoryBackendFile     = "file"
	MemoryBackendRedis    = "redis"
	MemoryBackendPostgres = "postgres"
	MemoryBackendSQLite   = "sqlite"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"wellbeing-companion"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	Logging   LoggingConfig   `yaml:"logging"`
	LLM       LLMConfig       `yaml:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Crisis    CrisisConfig    `yaml:"crisis"`
	Responder ResponderConfig `yaml:"responder"`
	Memory    MemoryConfig    `yaml:"memory"`
	Storage   StorageConfig   `yaml:"storage"`
	Security  SecurityConfig  `yaml:"security"`
	Health    HealthConfig    `yaml:"health"`

	Redis    pkgconfig.RedisConfig      `yaml:"redis"`
	Database pkgconfig.DatabaseConfig   `yaml:"database"`
	HTTP     pkgconfig.HTTPServerConfig `yaml:"http"`
	Metrics  pkgconfig.MetricsConfig    `yaml:"metrics"`
}

// Load reads the configuration from path (optional) and the environment,
// then validates it.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := pkgconfig.GetConfig(&cfg, path, false); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c AppConfig) Validate() error {
	var result error

	if err := c.Logging.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	// Validate generation provider
	switch strings.ToLower(c.LLM.Provider) {
	case ProviderNone:
	case ProviderClaude:
		if c.Anthropic.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required when llm provider is %q", ProviderClaude))
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required when llm provider is %q", ProviderOpenAI))
		}
		if c.OpenAI.Model == "" {
			result = multierror.Append(result, fmt.Errorf("openai model is required"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("llm provider must be one of [none, claude, openai], got %q", c.LLM.Provider))
	}
	if c.LLM.MaxTokens < 0 {
		result = multierror.Append(result, fmt.Errorf("llm max_tokens cannot be negative"))
	}

	// Validate detectors
	if err := c.Crisis.Detector().Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Crisis.Repeated().Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if c.Responder.MaxLength < 20 {
		result = multierror.Append(result, fmt.Errorf("reply max_length must be at least 20, got %d", c.Responder.MaxLength))
	}

	// Validate memory and the backend it needs
	if c.Memory.MemoryBound <= 0 || c.Memory.AnalyticsBound <= 0 {
		result = multierror.Append(result, fmt.Errorf("memory bounds must be greater than 0"))
	}
	// Storage holds the file backend and backups
	if err := c.Storage.validate(); err != nil {
		result = multierror.Append(result, err)
	}
	switch c.Memory.Backend {
	case MemoryBackendMemory, MemoryBackendFile:
	case MemoryBackendRedis:
		if err := c.Redis.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	case MemoryBackendPostgres:
		if err := c.Database.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	case MemoryBackendSQLite:
		if c.Memory.SQLitePath == "" {
			result = multierror.Append(result, fmt.Errorf("memory sqlite_path is required for the sqlite backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("memory backend must be one of [memory, file, redis, postgres, sqlite], got %q", c.Memory.Backend))
	}

	if err := c.HTTP.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Metrics.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	// Validate security config
	if c.Security.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}

	return result
}

func (s StorageConfig) validate() error {
	var result error
	switch s.Backend {
	case "local":
		if s.LocalDir == "" {
			result = multierror.Append(result, fmt.Errorf("storage local_dir is required for local storage"))
		}
	case "s3":
		if s.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("storage s3_bucket is required for s3 storage"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage backend must be 'local' or 's3', got %q", s.Backend))
	}
	return result
}

// GetLogLevel returns the parsed logger level
func (c AppConfig) GetLogLevel() logger.Level {
	return logger.ParseLevel(c.Logging.Level)
}

// IsProduction returns true if running in production environment
func (c AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data)
func (c AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.StringField("log_level", c.Logging.Level),
		logger.StringField("log_format", c.Logging.Format),
		logger.StringField("llm_provider", c.LLM.Provider),
		logger.StringField("memory_backend", c.Memory.Backend),
		logger.StringField("storage_backend", c.Storage.Backend),
		logger.StringField("helpline_locale", c.Responder.Locale),
		logger.BoolField("risk_override_first", c.Crisis.OverrideFirst),
		logger.IntField("crisis_window", c.Crisis.Window),
		logger.IntField("crisis_medium_threshold", c.Crisis.MediumThreshold),
		logger.IntField("crisis_high_threshold", c.Crisis.HighThreshold),
		logger.StringField("http_addr", c.HTTP.Addr()),
		logger.BoolField("metrics_exposed", c.Metrics.ExposeMetrics),
		logger.BoolField("anthropic_key_set", c.Anthropic.APIKey != ""),
		logger.BoolField("openai_key_set", c.OpenAI.APIKey != ""),
	)
}
