package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memory_entries (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT    NOT NULL,
    payload    BLOB    NOT NULL,
    created_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS memory_entries_collection_id_idx ON memory_entries (collection, id);
`

// SQLiteBackend stores entries in a local SQLite file in WAL mode, with the
// same table shape as the postgres backend.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend opens or creates the database at path.
func OpenSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer keeps appends and trims serialised
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Append inserts value into key and trims it to bound.
func (b *SQLiteBackend) Append(ctx context.Context, key string, value []byte, bound int) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO memory_entries (collection, payload) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("insert into %s: %w", key, err)
	}
	if bound > 0 {
		_, err := tx.ExecContext(ctx, `
DELETE FROM memory_entries
WHERE collection = ?
  AND id NOT IN (
    SELECT id FROM memory_entries WHERE collection = ? ORDER BY id DESC LIMIT ?
  )`, key, key, bound)
		if err != nil {
			return fmt.Errorf("trim %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Range returns the last n entries of key.
func (b *SQLiteBackend) Range(ctx context.Context, key string, n int) ([][]byte, error) {
	limit := n
	if limit <= 0 {
		limit = -1
	}
	rows, err := b.db.QueryContext(ctx, `
SELECT payload FROM (
  SELECT id, payload FROM memory_entries WHERE collection = ? ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", key, err)
		}
		out = append(out, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return out, nil
}

// Replace swaps the content of key.
func (b *SQLiteBackend) Replace(ctx context.Context, key string, values [][]byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_entries WHERE collection = ?`, key); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, `INSERT INTO memory_entries (collection, payload) VALUES (?, ?)`, key, v); err != nil {
			return fmt.Errorf("insert into %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Ping checks the database answers.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
