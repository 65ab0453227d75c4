package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" yaml:"addr" default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB" yaml:"db" default:"0"`

	// KeyPrefix namespaces every key written by the service
	KeyPrefix string `env:"REDIS_KEY_PREFIX" yaml:"key_prefix" default:"companion"`
}

// Validate checks RedisConfig for usable settings
func (r RedisConfig) Validate() error {
	var result error
	if r.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("redis addr is required"))
	}
	if r.DB < 0 || r.DB > 15 {
		result = multierror.Append(result, fmt.Errorf("redis db must be between 0-15, got %d", r.DB))
	}
	return result
}
