package config

// LLM provider constants
const (
	ProviderNone   = "none"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// LLMConfig selects the generative reply provider and its sampling settings.
type LLMConfig struct {
	// Provider specifies which LLM provider to use: "none", "claude" or "openai"
	Provider    string  `env:"LLM_PROVIDER" yaml:"provider" default:"none"`
	MaxTokens   int64   `env:"LLM_MAX_TOKENS" yaml:"max_tokens" default:"160"`
	Temperature float64 `env:"LLM_TEMPERATURE" yaml:"temperature" default:"0.7"`
	TopP        float64 `env:"LLM_TOP_P" yaml:"top_p" default:"0.92"`
}
