// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidStatus is returned when a task status is not valid.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidPriority is returned when a task priority is not valid.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// Validation error codes. These are stable identifiers returned to API
// clients alongside the human-readable message.
const (
	CodeSelfParent               = "SELF_PARENT"
	CodeDepthExceeded            = "DEPTH_EXCEEDED"
	CodeCircularReference        = "CIRCULAR_REFERENCE"
	CodeCrossOwner               = "CROSS_OWNER"
	CodeMissingDefaultLocaleName = "MISSING_DEFAULT_LOCALE_NAME"
	CodeUnsupportedLocale        = "UNSUPPORTED_LOCALE"
	CodeInvalidStatus            = "INVALID_STATUS"
	CodeInvalidPriority          = "INVALID_PRIORITY"
	CodeEmptyField               = "EMPTY_FIELD"
)

// ValidationError carries a stable machine-readable code together with the
// field that failed and a human-readable message. It wraps ErrValidation so
// callers can use errors.Is(err, domain.ErrValidation) without inspecting
// the concrete type.
type ValidationError struct {
	Code    string
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError with the given code,
// field and message, wrapping ErrValidation.
func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Message: message,
		Err:     ErrValidation,
	}
}

// ValidationCode extracts the validation code from err, or "" if err does
// not carry a ValidationError.
func ValidationCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// IsValidationCode reports whether err is a ValidationError with the given code.
func IsValidationCode(err error, code string) bool {
	return ValidationCode(err) == code
}
