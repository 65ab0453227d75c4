package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
)

// HTTPServerConfig holds the listener settings of the companion API.
type HTTPServerConfig struct {
	// Host is the interface to bind; empty binds all interfaces
	Host string `env:"HTTP_HOST" yaml:"host"`
	Port int    `env:"HTTP_PORT" yaml:"http_port" default:"8080"`

	ReadTimeoutSeconds  int `env:"HTTP_READ_TIMEOUT_SECONDS" yaml:"read_timeout_seconds" default:"15"`
	WriteTimeoutSeconds int `env:"HTTP_WRITE_TIMEOUT_SECONDS" yaml:"write_timeout_seconds" default:"15"`
	IdleTimeoutSeconds  int `env:"HTTP_IDLE_TIMEOUT_SECONDS" yaml:"idle_timeout_seconds" default:"60"`

	// ShutdownTimeoutSeconds bounds draining requests and writing the final
	// memory backup
	ShutdownTimeoutSeconds int `env:"HTTP_SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds" default:"30"`

	MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" yaml:"max_header_bytes" default:"1048576"`
}

// Validate checks the port range and that no timeout is negative.
func (h HTTPServerConfig) Validate() error {
	var result error
	if h.Port < 1 || h.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("http port must be between 1-65535, got %d", h.Port))
	}
	for name, v := range map[string]int{
		"read_timeout_seconds":     h.ReadTimeoutSeconds,
		"write_timeout_seconds":    h.WriteTimeoutSeconds,
		"idle_timeout_seconds":     h.IdleTimeoutSeconds,
		"shutdown_timeout_seconds": h.ShutdownTimeoutSeconds,
	} {
		if v < 0 {
			result = multierror.Append(result, fmt.Errorf("http %s cannot be negative, got %d", name, v))
		}
	}
	return result
}

// Addr returns the listen address, e.g. ":8080" or "127.0.0.1:8080".
func (h HTTPServerConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// ReadTimeout returns the ReadTimeoutSeconds as a time.Duration
func (h HTTPServerConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the WriteTimeoutSeconds as a time.Duration
func (h HTTPServerConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the IdleTimeoutSeconds as a time.Duration
func (h HTTPServerConfig) IdleTimeout() time.Duration {
	return time.Duration(h.IdleTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the shutdown bound, 30s when unset.
func (h HTTPServerConfig) ShutdownTimeout() time.Duration {
	if h.ShutdownTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.ShutdownTimeoutSeconds) * time.Second
}
