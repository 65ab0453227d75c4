// Package monitoring wires the companion's liveness and readiness checks.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lewisedginton/wellbeing_companion/internal/conversation_memory"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
)

// Health status constants
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusReady     = "ready"
	statusNotReady  = "not_ready"
)

// HealthMonitor manages health checks and monitoring endpoints for the application
type HealthMonitor struct {
	liveness  *prober
	readiness *prober
	logger    logger.Logger
	version   string
	startTime time.Time
}

// Config holds configuration for the health monitor
type Config struct {
	Logger  logger.Logger
	Version string
	// Backend is the memory backend; readiness pings it.
	Backend conversation_memory.Backend
	// GeneratorURL is optional; readiness fails when it answers 5xx.
	GeneratorURL     string
	Timeout          time.Duration // Health check timeout
	FailureThreshold int           // Number of consecutive failures before reporting unhealthy
}

// NewHealthMonitor creates a new health monitor with configured checks
func NewHealthMonitor(cfg Config) *HealthMonitor {
	// Set defaults
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	failureThreshold := cfg.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 3
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	liveness := newProber(timeout, failureThreshold, log)
	liveness.add("process", func(context.Context) error { return nil })

	readiness := newProber(timeout, failureThreshold, log)
	if cfg.Backend != nil {
		readiness.add("memory_backend", cfg.Backend.Ping)

		// redis gets its own check so its failures are named in the response
		if rb, ok := cfg.Backend.(*conversation_memory.RedisBackend); ok {
			readiness.add("redis", redisPing(rb.Client()))
		}
	}
	if cfg.GeneratorURL != "" {
		readiness.add("generator_api", httpReachable(&http.Client{Timeout: timeout}, cfg.GeneratorURL))
	}

	return &HealthMonitor{
		liveness:  liveness,
		readiness: readiness,
		logger:    log,
		version:   version,
		startTime: time.Now(),
	}
}

// LivenessHandler returns an HTTP handler for liveness probes.
// GET /health/live returns 200 while the process can handle requests.
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, err := hm.liveness.run(r.Context())

		response := map[string]any{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"version":   hm.version,
			"checks":    checks,
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response["status"] = statusUnhealthy
			response["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			hm.logger.Error("Liveness check failed", logger.ErrorField(err))
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
// GET /health/ready returns 200 when the memory backend and generator answer.
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, err := hm.readiness.run(r.Context())

		response := map[string]any{
			"status":    statusReady,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response["status"] = statusNotReady
			response["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			hm.logger.Error("Readiness check failed", logger.ErrorField(err))
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}
