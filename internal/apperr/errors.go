// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
// Every error carries a machine-readable code, a user-facing message and the HTTP
// status it maps to. The underlying cause is kept for logging and never rendered.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeTimeout             Code = "TIMEOUT"
	CodeInternal            Code = "INTERNAL"
)

// Error is the application error type.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Unauthenticated is returned when the caller has no valid identity.
func Unauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Message: "Unauthorized", HTTPStatus: http.StatusUnauthorized}
}

// BadRequest is returned when required input is missing or malformed.
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message, HTTPStatus: http.StatusBadRequest}
}

// UpstreamUnavailable is returned when an external provider call fails.
func UpstreamUnavailable(message string, cause error) *Error {
	return &Error{Code: CodeUpstreamUnavailable, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// Timeout is reported by the polling controller when its attempt budget runs out.
func Timeout(message string) *Error {
	return &Error{Code: CodeTimeout, Message: message, HTTPStatus: http.StatusGatewayTimeout}
}

// Internal wraps an unexpected failure behind a generic message.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// As extracts an *Error from err. Errors outside the taxonomy are reported as internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
