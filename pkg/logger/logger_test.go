package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Service: "companion", Output: &buf})

	log.Info("turn handled", RiskLevelField("none"), EmotionField("sad"))

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "turn handled", entries[0]["msg"])
	assert.Equal(t, "companion", entries[0]["service"])
	assert.Equal(t, "none", entries[0]["risk_level"])
	assert.Equal(t, "sad", entries[0]["emotion"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: WarnLevel, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown too")

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warning", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestWithFieldsIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Output: &buf})
	child := base.WithFields(SessionIDField("2026-10-15T09"))

	base.Info("base")
	child.Info("child")

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "session_id")
	assert.Equal(t, "2026-10-15T09", entries[1]["session_id"])
}

func TestCallSiteFieldsOverrideInherited(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Output: &buf}).WithFields(EmotionField("neutral"))

	log.Info("override", EmotionField("happy"))

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "happy", entries[0]["emotion"])
}

func TestFieldHelpers(t *testing.T) {
	tests := []struct {
		name  string
		field LogField
		key   string
		value string
	}{
		{"int", IntField("count", 42), "count", "42"},
		{"int64", Int64Field("big", 1 << 40), "big", "1099511627776"},
		{"float", FloatField("confidence", 0.756), "confidence", "0.76"},
		{"bool", BoolField("ok", true), "ok", "true"},
		{"duration", DurationField("took", 1500 * time.Millisecond), "took", "1.5s"},
		{"error", ErrorField(errors.New("boom")), "error", "boom"},
		{"nil error", ErrorField(nil), "error", "<nil>"},
		{"generic float", Field("score", 2.5), "score", "2.5"},
		{"generic level", Field("level", WarnLevel), "level", "warn"},
		{"turn", TurnIDField("turn_1"), "turn_id", "turn_1"},
		{"category", RiskCategoryField("suicide"), "risk_category", "suicide"},
		{"intensity", IntensityField("high"), "intensity", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.value, tt.field.Value)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, "info", InfoLevel.String())
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	again, sameID := EnsureCorrelationID(ctx)
	assert.Equal(t, id, sameID)
	assert.Equal(t, id, GetCorrelationIDFromContext(again))
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Output: &buf})

	var seen string
	handler := log.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("generates id when header is invalid", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodPost, "/v1/turns", nil)
		req.Header.Set(CorrelationIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.NotEqual(t, "not-a-uuid", seen)
		assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

		entries := decodeEntries(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "202", entries[0]["http_status"])
		assert.Equal(t, "2", entries[0]["response_bytes"])
		assert.Equal(t, "/v1/turns", entries[0]["http_path"])
	})

	t.Run("keeps a valid id", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/v1/analytics", nil)
		req.Header.Set(CorrelationIDHeader, id)

		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, id, seen)
	})
}
