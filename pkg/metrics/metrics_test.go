package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(true, false, logger.NewNopLogger())

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := scrape(t, m)
	assert.Contains(t, out, "companion_total_http_requests 4")
	assert.Contains(t, out, "companion_total_200_http_responses 3")
	assert.Contains(t, out, "companion_total_404_http_responses 1")
	assert.Contains(t, out, "companion_http_request_duration_seconds_count 4")
}

func TestHTTPMiddlewareDisabled(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())
	called := false
	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.NotContains(t, scrape(t, m), "companion_total_http_requests")
}

func TestObserveTurn(t *testing.T) {
	m := NewMetrics(false, true, logger.NewNopLogger())

	m.ObserveTurn("none", "sad", 4, 5*time.Millisecond)
	m.ObserveTurn("none", "sad", 7, 5*time.Millisecond)
	m.ObserveTurn("high", "suicidal", 10, time.Millisecond)
	m.IncrementStorageErrors()
	m.IncrementGenerationFailures()

	out := scrape(t, m)
	assert.Contains(t, out, `companion_turns_total{risk_level="none"} 2`)
	assert.Contains(t, out, `companion_turns_total{risk_level="high"} 1`)
	assert.Contains(t, out, `companion_emotions_total{emotion="sad"} 2`)
	assert.Contains(t, out, "companion_crisis_score 10")
	assert.Contains(t, out, "companion_memory_storage_errors_total 1")
	assert.Contains(t, out, "companion_generation_failures_total 1")
	assert.Contains(t, out, "companion_turn_duration_seconds_count 3")
}

func TestTurnRecordingIsNoopWhenDisabled(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())
	assert.NotPanics(t, func() {
		m.ObserveTurn("low", "happy", 0, time.Millisecond)
		m.IncrementStorageErrors()
		m.IncrementGenerationFailures()
	})

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveTurn("low", "happy", 0, time.Millisecond)
	})
}

func TestAddCustomMetric(t *testing.T) {
	m := NewMetrics(false, false, logger.NewNopLogger())
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "grounding_exercises_total", Help: "Grounding exercises offered"})
	m.AddCustomMetric(c)
	c.Add(2)

	assert.True(t, strings.Contains(scrape(t, m), "grounding_exercises_total 2"))
}
