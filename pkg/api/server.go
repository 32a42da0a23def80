// Package api serves the skill engine over HTTP: catalog listing, discovery,
// composition, catalog reloads, composition history and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillcomposer/pkg/history"
	"github.com/jingkaihe/skillcomposer/pkg/logger"
	"github.com/jingkaihe/skillcomposer/pkg/metrics"
	"github.com/jingkaihe/skillcomposer/pkg/skills"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 1 << 20

// ServerConfig holds the listen address
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Address returns host:port
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server is the HTTP API server
type Server struct {
	router   *mux.Router
	registry *skills.Registry
	history  *history.Store
	metrics  *metrics.Metrics
	config   *ServerConfig
	server   *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithHistory records every composition and enables the history routes
func WithHistory(h *history.Store) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics serves m on /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates an API server over registry
func NewServer(config *ServerConfig, registry *skills.Registry, opts ...Option) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}
	if registry == nil {
		return nil, errors.New("registry is required")
	}

	s := &Server{
		router:   mux.NewRouter(),
		registry: registry,
		config:   config,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods(http.MethodGet)
	api.HandleFunc("/skills/{id}", s.handleGetSkill).Methods(http.MethodGet)
	api.HandleFunc("/discover", s.handleDiscover).Methods(http.MethodPost)
	api.HandleFunc("/compose", s.handleCompose).Methods(http.MethodPost)
	api.HandleFunc("/catalog/reload", s.handleReloadCatalog).Methods(http.MethodPost)
	api.HandleFunc("/catalog/schema", s.handleCatalogSchema).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleListHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/diff", s.handleDiffHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", s.handleGetHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", s.handleDeleteHistory).Methods(http.MethodDelete)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.Use(s.requestContextMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler returns the routed handler with its middleware
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestContextMiddleware tags the request logger with a request id
func (s *Server) requestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithFields(r.Context(), logrus.Fields{logger.FieldRequestID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.registry.Catalog()
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"catalog_source":  snap.Source(),
		"catalog_version": snap.Version(),
		"catalog_skills":  snap.Len(),
		"history_enabled": s.history != nil,
	})
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		entry := logger.G(r.Context()).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error(message)
		} else {
			entry.Debug(message)
		}
	}

	response := map[string]any{
		"error":   message,
		"status":  status,
		"success": false,
	}
	if err != nil && status < http.StatusInternalServerError {
		response["detail"] = err.Error()
	}
	s.writeJSONResponse(w, status, response)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.G(ctx).WithField("address", s.config.Address()).Info("HTTP API listening")

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "HTTP server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the server immediately
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer, got %q", key, raw)
	}
	return n, nil
}
