// Package server exposes the companion engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/unrolled/secure"

	"github.com/lewisedginton/wellbeing_companion/internal/companion"
	appconfig "github.com/lewisedginton/wellbeing_companion/internal/config"
	"github.com/lewisedginton/wellbeing_companion/internal/middleware"
	"github.com/lewisedginton/wellbeing_companion/internal/monitoring"
	"github.com/lewisedginton/wellbeing_companion/pkg/logger"
	"github.com/lewisedginton/wellbeing_companion/pkg/metrics"
	"github.com/lewisedginton/wellbeing_companion/pkg/utils"
)

var backupName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}\.json$`)

// Server serves the turn, analytics and backup endpoints together with the
// health probes.
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	app     *companion.App
	metrics *metrics.Metrics
	health  *monitoring.HealthMonitor
	router  chi.Router
}

// New creates a Server for app. m may be nil.
func New(cfg *appconfig.AppConfig, app *companion.App, m *metrics.Metrics, log logger.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		app:     app,
		metrics: m,
		health: monitoring.NewHealthMonitor(monitoring.Config{
			Logger:           log,
			Version:          cfg.Version,
			Backend:          app.Backend,
			GeneratorURL:     cfg.Health.GeneratorURL,
			Timeout:          cfg.Health.Timeout,
			FailureThreshold: cfg.Health.FailureThreshold,
		}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	recovery := middleware.DefaultRecoveryConfig()
	recovery.Logger = s.log
	recovery.EnableStackTrace = !s.cfg.IsProduction()

	// outermost first: client ip, then the correlated request log
	r.Use(chimw.RealIP)
	r.Use(s.log.HTTPMiddleware)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      !s.cfg.IsProduction(),
	}).Handler)
	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Security.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Origin", "Content-Type", logger.CorrelationIDHeader},
			ExposedHeaders: []string{logger.CorrelationIDHeader},
			MaxAge:         300,
		}))
	}
	if s.cfg.HTTP.WriteTimeoutSeconds > 0 {
		r.Use(chimw.Timeout(s.cfg.HTTP.WriteTimeout()))
	}
	r.Use(chimw.Compress(5))
	r.Use(chimw.Heartbeat("/ping"))

	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware())
	}
	r.Use(middleware.ErrorHandler(recovery))
	r.Use(middleware.Recovery(recovery))
	r.Use(middleware.MaxBodySize(s.cfg.Security.MaxRequestSize))

	r.Get(s.cfg.Health.LivenessPath, s.health.LivenessHandler())
	r.Get(s.cfg.Health.ReadinessPath, s.health.ReadinessHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/turns", s.handleTurn)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/session", s.handleSession)
		r.Get("/grounding", s.handleGrounding)
		r.Post("/backups", s.handleBackup)
		r.Post("/backups/{name}/restore", s.handleRestore)
	})

	return r
}

// Run serves until ctx is cancelled or a listener fails, then shuts down
// gracefully and writes a backup of the memory store.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout(),
		WriteTimeout:      s.cfg.HTTP.WriteTimeout(),
		IdleTimeout:       s.cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes:    s.cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		s.log.Info("HTTP server listening", logger.StringField("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	listeners := []chan error{serveErr}
	exposeMetrics := s.metrics != nil && s.cfg.Metrics.ExposeMetrics
	if exposeMetrics {
		listeners = append(listeners, s.metrics.Listen(s.cfg.Metrics.Port))
	}
	listenErr := utils.MergeErrorChans(listeners...)

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutdown requested")
	case err, ok := <-listenErr:
		if ok {
			runErr = err
			s.log.Error("Listener failed", logger.ErrorField(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HTTP.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
	}
	if exposeMetrics {
		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Metrics server shutdown error", logger.ErrorField(err))
		}
	}
	if err := s.app.Backup(shutdownCtx, ""); err != nil {
		s.log.Error("Failed to back up conversation memory", logger.ErrorField(err))
	}

	// both listeners have stopped once the merged channel closes
	for err := range listenErr {
		s.log.Warn("Listener error during shutdown", logger.ErrorField(err))
	}

	s.log.Info("HTTP server stopped")
	return runErr
}

type turnRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a text field")
		return
	}

	turn, err := s.app.Engine.HandleTurn(r.Context(), req.Text)
	switch {
	case errors.Is(err, companion.ErrEmptyUtterance):
		writeError(w, http.StatusBadRequest, "EMPTY_TEXT", "text is required")
		return
	case err != nil:
		s.log.Error("Failed to handle turn", logger.ErrorField(err),
			logger.CorrelationIDField(r.Header.Get("X-Correlation-ID")))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to handle turn")
		return
	}

	if t, negative := s.app.Engine.NegativeTrend(); negative {
		s.log.Warn("Strong negative emotion trend detected",
			logger.EmotionField(t.Dominant),
			logger.FloatField("strength", t.Strength))
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Engine.Analytics())
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Engine.Summary())
}

func (s *Server) handleGrounding(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"exercise": s.app.Engine.GroundingExercise()})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = fmt.Sprintf("backup_%s.json", time.Now().UTC().Format("20060102T150405Z"))
	}
	if !backupName.MatchString(name) {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "backup name must be a plain .json file name")
		return
	}

	if err := s.app.Backup(r.Context(), name); err != nil {
		s.log.Error("Failed to write backup", logger.ErrorField(err), logger.StringField("backup", name))
		writeError(w, http.StatusInternalServerError, "BACKUP_FAILED", "failed to write backup")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"backup": name})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !backupName.MatchString(name) {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "backup name must be a plain .json file name")
		return
	}

	found, err := s.app.Restore(r.Context(), name)
	if err != nil {
		s.log.Error("Failed to restore backup", logger.ErrorField(err), logger.StringField("backup", name))
		writeError(w, http.StatusInternalServerError, "RESTORE_FAILED", "failed to restore backup")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "backup not found")
		return
	}
	writeJSON(w, http.StatusOK, s.app.Engine.Summary())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
