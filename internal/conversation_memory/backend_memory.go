package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"sync"
)

// MemoryBackend keeps lists in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu    sync.Mutex
	lists map[string][][]byte
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{lists: make(map[string][][]byte)}
}

// Append adds value to key and trims it to bound.
func (b *MemoryBackend) Append(_ context.Context, key string, value []byte, bound int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := append(b.lists[key], append([]byte(nil), value...))
	if bound > 0 {
		list = trim(list, bound)
	}
	b.lists[key] = list
	return nil
}

// Range returns the last n entries of key.
func (b *MemoryBackend) Range(_ context.Context, key string, n int) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recent := tail(b.lists[key], n)
	out := make([][]byte, len(recent))
	for i, v := range recent {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

// Replace swaps the content of key.
func (b *MemoryBackend) Replace(_ context.Context, key string, values [][]byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := make([][]byte, len(values))
	for i, v := range values {
		list[i] = append([]byte(nil), v...)
	}
	b.lists[key] = list
	return nil
}

// Ping always succeeds.
func (b *MemoryBackend) Ping(context.Context) error { return nil }

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
