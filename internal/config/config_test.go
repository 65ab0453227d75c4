package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "wellbeing-companion", cfg.ServiceName)
	assert.Equal(t, ProviderNone, cfg.LLM.Provider)
	assert.Equal(t, MemoryBackendFile, cfg.Memory.Backend)
	assert.Equal(t, 50, cfg.Memory.MemoryBound)
	assert.Equal(t, 200, cfg.Memory.AnalyticsBound)
	assert.Equal(t, "IN", cfg.Responder.Locale)
	assert.Equal(t, 300, cfg.Responder.MaxLength)
	assert.Equal(t, 15, cfg.Crisis.HighThreshold)
	assert.Equal(t, []string{"sad", "angry", "anxious", "lonely"}, cfg.Crisis.MediumRiskTags)
	assert.Equal(t, logger.InfoLevel, cfg.GetLogLevel())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("COMPANION_TEST_BUCKET", "transcripts")
	t.Setenv("REPLY_MAX_LENGTH", "120")

	path := writeConfigFile(t, `
service_name: companion-test
environment: production
logging:
  level: debug
  format: text
memory:
  backend: sqlite
  memory_bound: 10
storage:
  backend: s3
  s3_bucket: ${COMPANION_TEST_BUCKET}
responder:
  locale: DEFAULT
  max_length: 200
crisis:
  window: 6
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "companion-test", cfg.ServiceName)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, logger.DebugLevel, cfg.GetLogLevel())
	assert.Equal(t, MemoryBackendSQLite, cfg.Memory.Backend)
	assert.Equal(t, 10, cfg.Memory.MemoryBound)
	assert.Equal(t, 200, cfg.Memory.AnalyticsBound)
	assert.Equal(t, "transcripts", cfg.Storage.S3Bucket)
	assert.Equal(t, "DEFAULT", cfg.Responder.Locale)
	assert.Equal(t, 120, cfg.Responder.MaxLength, "environment overrides the file")
	assert.Equal(t, 6, cfg.Crisis.Detector().Window)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(writeConfigFile(t, "logging: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Load(writeConfigFile(t, "llm:\n  provider: gemini\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm provider must be one of")
	})
}

// validConfig loads the defaults with provider keys cleared from the
// environment.
func validConfig(t *testing.T) AppConfig {
	t.Helper()
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "LLM_PROVIDER"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	cfg, err := Load("")
	require.NoError(t, err)
	return *cfg
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *AppConfig)
		errorMsg string
	}{
		{
			name:   "defaults",
			mutate: func(c *AppConfig) {},
		},
		{
			name:     "bad log level",
			mutate:   func(c *AppConfig) { c.Logging.Level = "trace" },
			errorMsg: "log_level must be one of",
		},
		{
			name:     "bad log format",
			mutate:   func(c *AppConfig) { c.Logging.Format = "xml" },
			errorMsg: "log_format must be either",
		},
		{
			name:     "claude without key",
			mutate:   func(c *AppConfig) { c.LLM.Provider = ProviderClaude },
			errorMsg: "ANTHROPIC_API_KEY is required",
		},
		{
			name: "claude with key",
			mutate: func(c *AppConfig) {
				c.LLM.Provider = ProviderClaude
				c.Anthropic.APIKey = "sk-test"
			},
		},
		{
			name:     "openai without key",
			mutate:   func(c *AppConfig) { c.LLM.Provider = ProviderOpenAI },
			errorMsg: "OPENAI_API_KEY is required",
		},
		{
			name:     "crisis thresholds inverted",
			mutate:   func(c *AppConfig) { c.Crisis.HighThreshold = 4 },
			errorMsg: "below the medium threshold",
		},
		{
			name:     "repeated min entries above window",
			mutate:   func(c *AppConfig) { c.Crisis.RepeatedMinEntries = 20 },
			errorMsg: "minimum entries",
		},
		{
			name:     "tiny replies",
			mutate:   func(c *AppConfig) { c.Responder.MaxLength = 5 },
			errorMsg: "max_length must be at least 20",
		},
		{
			name:     "zero memory bound",
			mutate:   func(c *AppConfig) { c.Memory.MemoryBound = 0 },
			errorMsg: "memory bounds must be greater than 0",
		},
		{
			name:     "unknown memory backend",
			mutate:   func(c *AppConfig) { c.Memory.Backend = "etcd" },
			errorMsg: "memory backend must be one of",
		},
		{
			name:     "s3 without bucket",
			mutate:   func(c *AppConfig) { c.Storage.Backend = "s3" },
			errorMsg: "s3_bucket is required",
		},
		{
			name: "redis without addr",
			mutate: func(c *AppConfig) {
				c.Memory.Backend = MemoryBackendRedis
				c.Redis.Addr = ""
			},
			errorMsg: "redis addr is required",
		},
		{
			name: "redis settings ignored for other backends",
			mutate: func(c *AppConfig) {
				c.Memory.Backend = MemoryBackendMemory
				c.Redis.Addr = ""
			},
		},
		{
			name: "postgres pool",
			mutate: func(c *AppConfig) {
				c.Memory.Backend = MemoryBackendPostgres
				c.Database.MaxConnections = 0
			},
			errorMsg: "max_connections must be positive",
		},
		{
			name:     "sqlite without path",
			mutate:   func(c *AppConfig) { c.Memory.Backend, c.Memory.SQLitePath = MemoryBackendSQLite, "" },
			errorMsg: "sqlite_path is required",
		},
		{
			name:     "request size",
			mutate:   func(c *AppConfig) { c.Security.MaxRequestSize = 0 },
			errorMsg: "max_request_size must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestAppConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Logging.Format = "xml"
	cfg.Memory.AnalyticsBound = -1
	cfg.Responder.MaxLength = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
	assert.Contains(t, err.Error(), "memory bounds")
	assert.Contains(t, err.Error(), "max_length")
}

func TestAppConfig_LogConfigHidesSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(logger.Config{Level: logger.InfoLevel, Format: "json", Service: "test", Output: &buf})

	cfg := validConfig(t)
	cfg.Anthropic.APIKey = "sk-very-secret"
	cfg.LogConfig(log)

	out := buf.String()
	assert.Contains(t, out, "Application configuration loaded")
	assert.Contains(t, out, `"anthropic_key_set":"true"`)
	assert.Contains(t, out, `"openai_key_set":"false"`)
	assert.NotContains(t, out, "sk-very-secret")
}

func TestValidConfig_IgnoresAmbientProviderKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-shell")
	t.Setenv("OPENAI_API_KEY", "sk-from-shell")

	cfg := validConfig(t)
	assert.Empty(t, cfg.Anthropic.APIKey)
	assert.Empty(t, cfg.OpenAI.APIKey)

	cfg.LLM.Provider = ProviderClaude
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY is required")
}
