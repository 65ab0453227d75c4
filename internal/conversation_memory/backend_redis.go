package conversation_memory //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each key as a redis list. Appends push and trim in one
// MULTI block so the list is never seen over its bound.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisBackend returns a backend over client. Keys are namespaced with
// prefix when it is not empty.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// Client returns the underlying redis client.
func (b *RedisBackend) Client() redis.UniversalClient {
	return b.client
}

func (b *RedisBackend) key(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

// Append pushes value onto key and trims it to bound.
func (b *RedisBackend) Append(ctx context.Context, key string, value []byte, bound int) error {
	k := b.key(key)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, k, value)
		if bound > 0 {
			pipe.LTrim(ctx, k, int64(-bound), -1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", k, err)
	}
	return nil
}

// Range returns the last n entries of key.
func (b *RedisBackend) Range(ctx context.Context, key string, n int) ([][]byte, error) {
	k := b.key(key)
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	values, err := b.client.LRange(ctx, k, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", k, err)
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out, nil
}

// Replace swaps the content of key.
func (b *RedisBackend) Replace(ctx context.Context, key string, values [][]byte) error {
	k := b.key(key)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		if len(values) > 0 {
			args := make([]any, len(values))
			for i, v := range values {
				args[i] = v
			}
			pipe.RPush(ctx, k, args...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", k, err)
	}
	return nil
}

// Ping checks the redis server answers.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
