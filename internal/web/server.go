// Package web provides the HTTP API for submitting payment files and polling
// import jobs.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/feerecon/internal/config"
	"github.com/JonMunkholm/feerecon/internal/core"
	"github.com/JonMunkholm/feerecon/internal/metrics"
	"github.com/JonMunkholm/feerecon/internal/web/middleware"
)

// defaultEventInterval is how often the job event stream re-reads the job.
const defaultEventInterval = time.Second

// Server is the HTTP server for the reconciliation service.
type Server struct {
	service *core.Service
	metrics *metrics.Manager
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	eventInterval time.Duration
}

// NewServer creates a new Server. m may be nil, in which case /metrics is
// not mounted and requests are only logged.
func NewServer(service *core.Service, cfg *config.Config, m *metrics.Manager) *Server {
	s := &Server{
		service:       service,
		metrics:       m,
		cfg:           cfg,
		router:        chi.NewRouter(),
		eventInterval: defaultEventInterval,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))

	var obs middleware.Observer
	if s.metrics != nil {
		obs = s.metrics
	}
	s.router.Use(middleware.Logger(obs))
	s.router.Use(chimw.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// HTMX status fragment
	s.router.Get("/imports/{jobID}", s.handleStatusFragment)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/imports", s.handleSubmit)
		r.Post("/imports/sync", s.handleProcessSync)
		r.Get("/imports/queue", s.handleQueueStatus)
		r.Get("/imports/{jobID}", s.handleStatus)
		r.Get("/imports/{jobID}/events", s.handleEvents)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
