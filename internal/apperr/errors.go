// Package apperr defines the domain errors surfaced to REST consumers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error carrying the HTTP status it maps to.
type Error struct {
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StatusCode returns the HTTP status code for this error.
func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

func newError(status int, def string, msg []string) *Error {
	m := def
	if len(msg) > 0 && msg[0] != "" {
		m = msg[0]
	}
	return &Error{Status: status, Message: m}
}

// NotFound reports a missing collection or record (404).
func NotFound(msg ...string) *Error {
	return newError(http.StatusNotFound, "Resource not found", msg)
}

// Request reports malformed input or an invalid path (400).
func Request(msg ...string) *Error {
	return newError(http.StatusBadRequest, "Request error", msg)
}

// Conflict reports a duplicate unique field (409).
func Conflict(msg ...string) *Error {
	return newError(http.StatusConflict, "Resource conflict", msg)
}

// Authorization reports a missing session where one is required (401).
func Authorization(msg ...string) *Error {
	return newError(http.StatusUnauthorized, "Unauthorized", msg)
}

// Credential reports an authenticated but forbidden request or a failed login (403).
func Credential(msg ...string) *Error {
	return newError(http.StatusForbidden, "Forbidden", msg)
}

// Wrap attaches the underlying cause to a domain error.
func Wrap(e *Error, cause error) *Error {
	e.cause = cause
	return e
}

// As extracts a domain error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Body is the JSON payload sent for failed requests.
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BodyOf builds the response payload for a domain error.
func BodyOf(e *Error) Body {
	return Body{Code: e.StatusCode(), Message: e.Message}
}

// Errorf is a Request error with a formatted message.
func Errorf(format string, args ...any) *Error {
	return Request(fmt.Sprintf(format, args...))
}
