package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/panks123/pizza-app-auth-service/internal/auth"
	"github.com/panks123/pizza-app-auth-service/internal/tenant"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
)

// Client-facing messages for domain errors.
const (
	msgEmailExists        = "Email already exists!"
	msgInvalidCredentials = "Email or Password does not match"
	msgUserNotFound       = "User does not exist"
	msgTenantNotFound     = "Tenant does not exist"
	msgInvalidURLParam    = "Invalid url param"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceError translates an error from the auth, tenant or storage
// layers into a response. Unknown errors are logged and reported as 500
// without their detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		writeBadRequest(w, msgEmailExists)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeBadRequest(w, msgInvalidCredentials)
	case errors.Is(err, auth.ErrUserNotFound):
		writeBadRequest(w, msgUserNotFound)
	case errors.Is(err, tenant.ErrTenantNotFound):
		writeBadRequest(w, msgTenantNotFound)
	case auth.IsTokenError(err):
		writeUnauthorized(w, msgUnauthorised)
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, msgForbidden)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("request aborted by store timeout or cancellation",
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "service temporarily unavailable")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}
