// Package metrics provides Prometheus metrics collection for HTTP requests and
// conversation turns.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystem = "companion"
)

// Metrics provides Prometheus metrics collection for HTTP requests and turns.
// Collectors that were not enabled are nil and their recording methods are no-ops.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram
	httpMu                   sync.Mutex
	httpResponseCounters     map[int]prometheus.Counter

	TurnsCounter             *prometheus.CounterVec
	EmotionsCounter          *prometheus.CounterVec
	CrisisScoreGauge         prometheus.Gauge
	StorageErrorsCounter     prometheus.Counter
	GenerationFailureCounter prometheus.Counter
	TurnDurationHistogram    prometheus.Histogram

	server *http.Server
	log    logger.Logger
}

// NewMetrics creates a new Metrics instance with the specified collectors enabled.
func NewMetrics(httpCounters, turnCounters bool, l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}
	if httpCounters {
		m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "total_http_requests",
			Help:      "Total HTTP requests",
		})
		m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
		})
		m.httpResponseCounters = make(map[int]prometheus.Counter)
		m.reg.MustRegister(m.TotalHTTPRequestsCounter, m.HTTPDurationHistogram)
	}
	if turnCounters {
		m.TurnsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "turns_total",
			Help:      "Conversation turns handled, by assessed risk level",
		}, []string{"risk_level"})
		m.EmotionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "emotions_total",
			Help:      "Primary emotions recorded per turn",
		}, []string{"emotion"})
		m.CrisisScoreGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "crisis_score",
			Help:      "Crisis score of the most recent emotion window",
		})
		m.StorageErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "memory_storage_errors_total",
			Help:      "Conversation memory read or write failures",
		})
		m.GenerationFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "generation_failures_total",
			Help:      "Generative reply failures that fell back to templates",
		})
		m.TurnDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      "turn_duration_seconds",
			Help:      "Time to assess and answer one turn",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		})
		m.reg.MustRegister(
			m.TurnsCounter,
			m.EmotionsCounter,
			m.CrisisScoreGauge,
			m.StorageErrorsCounter,
			m.GenerationFailureCounter,
			m.TurnDurationHistogram,
		)
	}
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen starts the metrics HTTP server on the specified port. Serve errors are
// delivered on the returned channel, which closes once the server stops.
func (m *Metrics) Listen(port int) chan error {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	return errChan
}

// Shutdown stops the metrics listener started by Listen.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	m.log.Info("Stopping metrics listener")
	return m.server.Shutdown(ctx)
}

// AddCustomMetric registers a custom Prometheus collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

// ObserveTurn records one handled turn.
func (m *Metrics) ObserveTurn(riskLevel, emotion string, crisisScore int, took time.Duration) {
	if m == nil || m.TurnsCounter == nil {
		return
	}
	m.TurnsCounter.WithLabelValues(riskLevel).Inc()
	if emotion != "" {
		m.EmotionsCounter.WithLabelValues(emotion).Inc()
	}
	m.CrisisScoreGauge.Set(float64(crisisScore))
	m.TurnDurationHistogram.Observe(took.Seconds())
}

// IncrementStorageErrors counts a failed memory read or write.
func (m *Metrics) IncrementStorageErrors() {
	if m == nil || m.StorageErrorsCounter == nil {
		return
	}
	m.StorageErrorsCounter.Inc()
}

// IncrementGenerationFailures counts a generative reply that fell back to templates.
func (m *Metrics) IncrementGenerationFailures() {
	if m == nil || m.GenerationFailureCounter == nil {
		return
	}
	m.GenerationFailureCounter.Inc()
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	if m.httpResponseCounters == nil {
		return
	}
	m.httpMu.Lock()
	counter, ok := m.httpResponseCounters[code]
	if !ok {
		counter = newTotalHTTPReqMetric(code)
		m.reg.MustRegister(counter)
		m.httpResponseCounters[code] = counter
	}
	m.httpMu.Unlock()
	counter.Inc()
}

func newTotalHTTPReqMetric(code int) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      fmt.Sprintf("total_%d_http_responses", code),
		Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
	})
}

// HTTPMiddleware returns a Chi-compatible middleware that tracks HTTP metrics
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.TotalHTTPRequestsCounter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
