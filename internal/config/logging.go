package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level" default:"info"`
	Format string `env:"LOG_FORMAT" yaml:"format" default:"json"`
}

// Validate checks the level (case-insensitive) and the format.
func (l LoggingConfig) Validate() error {
	var result error
	if !slices.Contains(logLevels, strings.ToLower(l.Level)) {
		result = multierror.Append(result, fmt.Errorf("log_level must be one of [%s], got %q", strings.Join(logLevels, ", "), l.Level))
	}
	if l.Format != "json" && l.Format != "text" {
		result = multierror.Append(result, fmt.Errorf("log_format must be either 'json' or 'text', got %q", l.Format))
	}
	return result
}
