// Package domainerrors provides coded errors for the balangay domain layer.
// Services return these; the transport layer maps codes to HTTP statuses.
// Infrastructure facts (row missing, constraint hit) use pkg/platform/sentinel
// and are translated into these codes at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput marks rejected input, e.g. a geographic code that does
	// not exist in the catalog. Rejected before any transaction is opened.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a missing domain entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks duplicate creation attempts (idempotent signup).
	CodeConflict Code = "conflict"
	// CodePermissionDenied marks a denied access grant surfaced as an error
	// by callers that require the grant to proceed.
	CodePermissionDenied Code = "permission_denied"
	// CodeConfiguration marks missing reference data (roles, geo units).
	// Fatal, never retried automatically.
	CodeConfiguration Code = "configuration_error"
	// CodeUnavailable marks transient store errors; callers may retry with
	// backoff.
	CodeUnavailable Code = "unavailable"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal if err is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status used in JSON error envelopes.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeConfiguration:
		return http.StatusInternalServerError
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
