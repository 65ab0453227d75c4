package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

func probe(t *testing.T, h http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLiveness(t *testing.T) {
	hm := NewHealthMonitor(Config{Logger: logger.NewNopLogger(), Version: "1.2.3"})

	code, body := probe(t, hm.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, statusHealthy, body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestReadiness_MemoryBackend(t *testing.T) {
	hm := NewHealthMonitor(Config{
		Logger:  logger.NewNopLogger(),
		Backend: conversation_memory.NewMemoryBackend(),
	})

	code, body := probe(t, hm.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, statusReady, body["status"])
}

func TestReadiness_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hm := NewHealthMonitor(Config{
		Logger:           logger.NewNopLogger(),
		Backend:          conversation_memory.NewRedisBackend(client, "test"),
		FailureThreshold: 1,
	})

	code, _ := probe(t, hm.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)

	mr.Close()
	code, body := probe(t, hm.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, statusNotReady, body["status"])
	assert.Contains(t, body["error"], "redis")
	assert.Contains(t, body["error"], "memory_backend")
}

func TestReadiness_GeneratorURL(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	t.Cleanup(api.Close)

	hm := NewHealthMonitor(Config{
		Logger:           logger.NewNopLogger(),
		GeneratorURL:     api.URL,
		FailureThreshold: 1,
	})

	code, _ := probe(t, hm.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)

	status.Store(http.StatusBadGateway)
	code, body := probe(t, hm.ReadinessHandler())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["error"], "generator_api")
}

func TestProber_FailureThreshold(t *testing.T) {
	var failing atomic.Bool
	p := newProber(time.Second, 2, logger.NewNopLogger())
	p.add("flaky", func(context.Context) error {
		if failing.Load() {
			return errors.New("boom")
		}
		return nil
	})
	ctx := context.Background()

	failing.Store(true)
	results, err := p.run(ctx)
	require.NoError(t, err, "first failure is below threshold")
	assert.True(t, results[0].Healthy)

	results, err = p.run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flaky")
	assert.False(t, results[0].Healthy)
	assert.Equal(t, "boom", results[0].Error)

	failing.Store(false)
	_, err = p.run(ctx)
	require.NoError(t, err)

	// a success resets the count
	failing.Store(true)
	_, err = p.run(ctx)
	assert.NoError(t, err)
}

func TestProber_Timeout(t *testing.T) {
	p := newProber(20*time.Millisecond, 1, logger.NewNopLogger())
	p.add("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	results, err := p.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, results[0].Error, "deadline exceeded")
}
