// Package api contains the HTTP handlers exposing the task service. The
// handlers are a thin shell: parsing, owner resolution and error mapping;
// all domain behavior lives in the service layer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/store"
)

// ErrorResponse is the JSON body returned for every failed request. Code is
// only set for validation failures and carries the stable validation code.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, store.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	switch {
	case errors.Is(err, store.ErrParentNotFound):
		return "Parent task not found"
	case store.IsNotFoundError(err):
		return "Task not found"
	case errors.Is(err, store.ErrTimeout):
		return "The operation timed out"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Operation not permitted"
	default:
		return "An unexpected error occurred"
	}
}

// RespondError writes the mapped status and safe message for err. Internal
// errors are logged with full detail before the sanitized response goes out.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}

	resp := ErrorResponse{
		Error: GetSafeErrorMessage(err),
		Code:  domain.ValidationCode(err),
	}
	RespondJSON(w, status, resp)
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
