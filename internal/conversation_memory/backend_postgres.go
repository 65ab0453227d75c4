package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/wellbeing_companion/pkg/config"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

const (
	pgInsertEntry = `INSERT INTO memory_entries (collection, payload) VALUES ($1, $2)`

	// deletes every row older than the bound-th newest
	pgTrimCollection = `
DELETE FROM memory_entries
WHERE collection = $1
  AND id <= (
    SELECT id FROM memory_entries
    WHERE collection = $1
    ORDER BY id DESC
    OFFSET $2 LIMIT 1
  )`

	pgRecentEntries = `
SELECT payload FROM (
  SELECT id, payload FROM memory_entries
  WHERE collection = $1
  ORDER BY id DESC
  LIMIT $2
) recent
ORDER BY id ASC`

	pgAllEntries = `SELECT payload FROM memory_entries WHERE collection = $1 ORDER BY id ASC`

	pgClearCollection = `DELETE FROM memory_entries WHERE collection = $1`
)

// PostgresBackend stores entries as rows of memory_entries. Trimming runs in
// the same transaction as the insert.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend returns a backend over an open pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// OpenPostgresBackend connects a pool and optionally migrates the schema.
func OpenPostgresBackend(ctx context.Context, cfg config.DatabaseConfig, migrateUp bool, log logger.Logger) (*PostgresBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections) //nolint:gosec // bounded by Validate
	poolCfg.MinConns = int32(cfg.MinConnections) //nolint:gosec // bounded by Validate
	if d := cfg.IdleTime(); d > 0 {
		poolCfg.MaxConnIdleTime = d
	}
	if d := cfg.Lifetime(); d > 0 {
		poolCfg.MaxConnLifetime = d
	}
	if d := cfg.DialTimeout(); d > 0 {
		poolCfg.ConnConfig.ConnectTimeout = d
	}
	if ms := cfg.StatementTimeoutParam(); ms != "" {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = ms
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if migrateUp {
		if err := NewMigrationManager(pool, log).Up(); err != nil {
			pool.Close()
			return nil, err
		}
	}

	log.Info("Connected to postgres memory backend")
	return NewPostgresBackend(pool), nil
}

// Pool returns the underlying connection pool.
func (b *PostgresBackend) Pool() *pgxpool.Pool {
	return b.pool
}

// Append inserts value into key and trims it to bound.
func (b *PostgresBackend) Append(ctx context.Context, key string, value []byte, bound int) error {
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgInsertEntry, key, value); err != nil {
			return fmt.Errorf("insert into %s: %w", key, err)
		}
		if bound > 0 {
			if _, err := tx.Exec(ctx, pgTrimCollection, key, bound); err != nil {
				return fmt.Errorf("trim %s: %w", key, err)
			}
		}
		return nil
	})
}

// Range returns the last n entries of key.
func (b *PostgresBackend) Range(ctx context.Context, key string, n int) ([][]byte, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if n > 0 {
		rows, err = b.pool.Query(ctx, pgRecentEntries, key, n)
	} else {
		rows, err = b.pool.Query(ctx, pgAllEntries, key)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return out, nil
}

// Replace swaps the content of key.
func (b *PostgresBackend) Replace(ctx context.Context, key string, values [][]byte) error {
	return pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgClearCollection, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
		batch := &pgx.Batch{}
		for _, v := range values {
			batch.Queue(pgInsertEntry, key, v)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert into %s: %w", key, err)
		}
		return nil
	})
}

// Ping checks the database answers.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Close closes the pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
