package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON, or as an HTML fragment for HTMX

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/feerecon/internal/core"
	"github.com/JonMunkholm/feerecon/internal/logging"
	"github.com/JonMunkholm/feerecon/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Result is set when a sync import fails fatally; it holds the single
	// file-level error with status "error".
	Result *core.ImportResult `json:"result,omitempty"`
}

// respondError logs the technical error server-side and returns the mapped
// user message as JSON, or as an HTML fragment for HTMX requests.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	s.renderError(w, r, err, statusCode, isHTMX(r))
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, statusCode int, html bool) {
	s.renderImportError(w, r, err, statusCode, html, nil)
}

func (s *Server) renderImportError(w http.ResponseWriter, r *http.Request, err error, statusCode int, html bool, result *core.ImportResult) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if html {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
		return
	}

	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		Result:  result,
	})
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var parseErr *core.ParseError
	switch {
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parseErr), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
