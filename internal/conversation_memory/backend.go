package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lewisedginton/wellbeing_companion/internal/storage_manager"
	"github.com/lewisedginton/wellbeing_companion/pkg/config"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// Backend is durable bounded-list storage. Each key is an independent list
// of opaque entries, oldest first.
type Backend interface {
	// Append adds value to the end of key and drops the oldest entries so at
	// most bound remain. A non-positive bound keeps everything.
	Append(ctx context.Context, key string, value []byte, bound int) error
	// Range returns the last n entries of key, oldest first. A non-positive n
	// returns every entry. A missing key is an empty list.
	Range(ctx context.Context, key string, n int) ([][]byte, error)
	// Replace swaps the whole content of key.
	Replace(ctx context.Context, key string, values [][]byte) error
	// Ping checks the storage is reachable.
	Ping(ctx context.Context) error
	// Close releases connections held by the backend.
	Close() error
}

// BackendType names a Backend implementation.
type BackendType string

const (
	BackendMemory   BackendType = "memory"
	BackendFile     BackendType = "file"
	BackendRedis    BackendType = "redis"
	BackendPostgres BackendType = "postgres"
	BackendSQLite   BackendType = "sqlite"
)

// ErrUnknownBackend is returned for an unsupported backend type.
var ErrUnknownBackend = errors.New("unknown memory backend")

// BackendConfig selects and configures a Backend.
type BackendConfig struct {
	Type BackendType

	// Files is used by the file backend.
	Files storage_manager.FileProvider
	// Redis is used by the redis backend.
	Redis config.RedisConfig
	// Database is used by the postgres backend.
	Database config.DatabaseConfig
	// RunMigrations applies pending postgres migrations on open.
	RunMigrations bool
	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string
}

// OpenBackend connects the configured backend.
func OpenBackend(ctx context.Context, cfg BackendConfig, log logger.Logger) (Backend, error) {
	switch cfg.Type {
	case BackendMemory, "":
		return NewMemoryBackend(), nil

	case BackendFile:
		if cfg.Files == nil {
			return nil, fmt.Errorf("file provider is required for the file backend")
		}
		return NewFileBackend(cfg.Files), nil

	case BackendRedis:
		if err := cfg.Redis.Validate(); err != nil {
			return nil, fmt.Errorf("invalid redis config: %w", err)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		log.Info("Connected to redis memory backend", logger.StringField("addr", cfg.Redis.Addr))
		return NewRedisBackend(client, cfg.Redis.KeyPrefix), nil

	case BackendPostgres:
		b, err := OpenPostgresBackend(ctx, cfg.Database, cfg.RunMigrations, log)
		if err != nil {
			return nil, err
		}
		return b, nil

	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required for the sqlite backend")
		}
		b, err := OpenSQLiteBackend(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("Opened sqlite memory backend", logger.StringField("path", cfg.SQLitePath))
		return b, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
}
