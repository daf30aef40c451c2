// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/feerecon/internal/logging"
)

// Observer records per-request metrics. metrics.Manager implements it.
type Observer interface {
	ObserveHTTP(route, method string, code int, elapsed time.Duration)
}

// Logger returns middleware that logs each request and reports it to obs.
// obs may be nil.
//
// Log fields:
//   - method, path, route: route is the chi pattern ("/api/imports/{jobID}")
//   - status: HTTP response status code
//   - duration_ms: request processing time in milliseconds
//   - request_id, remote_ip: from logging.FromContext
//   - user_agent: client user agent string
func Logger(obs Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := routePattern(r)

			logger := logging.FromContext(r.Context())
			level := logger.Info
			if route == "/healthz" || route == "/metrics" {
				level = logger.Debug
			}
			level("request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", ww.status,
				"duration_ms", duration.Milliseconds(),
				"user_agent", r.UserAgent(),
			)

			if obs != nil {
				obs.ObserveHTTP(route, r.Method, ww.status, duration)
			}
		})
	}
}

// routePattern keeps metric label cardinality bounded by job ids.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush lets the job event stream push through the wrapper.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap provides access to the underlying ResponseWriter.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
