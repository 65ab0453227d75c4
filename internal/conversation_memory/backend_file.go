package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/wellbeing_companion/internal/storage_manager"
)

// fileDocument is the JSON layout of one list on disk or in a bucket.
type fileDocument struct {
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   []json.RawMessage `json:"entries"`
}

// FileBackend stores each list as a JSON document through a FileProvider, so
// it works on local disk and on S3 alike. Entries must be valid JSON.
type FileBackend struct {
	files storage_manager.FileProvider
	mu    sync.Mutex
}

// NewFileBackend returns a backend writing through files.
func NewFileBackend(files storage_manager.FileProvider) *FileBackend {
	return &FileBackend{files: files}
}

func documentPath(key string) string {
	return key + ".json"
}

func (b *FileBackend) read(ctx context.Context, key string) (fileDocument, error) {
	path := documentPath(key)
	exists, err := b.files.Exists(ctx, path)
	if err != nil {
		return fileDocument{}, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if !exists {
		return fileDocument{}, nil
	}

	data, err := b.files.Read(ctx, path)
	if err != nil {
		return fileDocument{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDocument{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

func (b *FileBackend) write(ctx context.Context, key string, entries []json.RawMessage) error {
	data, err := json.MarshalIndent(fileDocument{UpdatedAt: time.Now().UTC(), Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := b.files.Write(ctx, documentPath(key), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", documentPath(key), err)
	}
	return nil
}

// Append adds value to key and trims it to bound.
func (b *FileBackend) Append(ctx context.Context, key string, value []byte, bound int) error {
	if !json.Valid(value) {
		return fmt.Errorf("file backend entries must be JSON")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read(ctx, key)
	if err != nil {
		return err
	}
	entries := append(doc.Entries, json.RawMessage(append([]byte(nil), value...)))
	if bound > 0 {
		entries = trim(entries, bound)
	}
	return b.write(ctx, key, entries)
}

// Range returns the last n entries of key.
func (b *FileBackend) Range(ctx context.Context, key string, n int) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read(ctx, key)
	if err != nil {
		return nil, err
	}
	recent := tail(doc.Entries, n)
	out := make([][]byte, len(recent))
	for i, e := range recent {
		out[i] = []byte(e)
	}
	return out, nil
}

// Replace swaps the content of key.
func (b *FileBackend) Replace(ctx context.Context, key string, values [][]byte) error {
	entries := make([]json.RawMessage, len(values))
	for i, v := range values {
		if !json.Valid(v) {
			return fmt.Errorf("file backend entries must be JSON")
		}
		entries[i] = json.RawMessage(v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.write(ctx, key, entries)
}

// Ping checks the provider answers an existence query.
func (b *FileBackend) Ping(ctx context.Context) error {
	_, err := b.files.Exists(ctx, documentPath(memoryKey))
	return err
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }
