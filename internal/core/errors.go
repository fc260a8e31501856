// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps a formatted cause under base.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Provider errors
	ErrRateLimited = &Error{Code: "RATE_LIMITED", Message: "provider rate limit hit"}
	ErrTransient   = &Error{Code: "TRANSIENT", Message: "transient provider failure"}
	ErrNotFound    = &Error{Code: "NOT_FOUND", Message: "instrument or range not found"}
	ErrMalformed   = &Error{Code: "MALFORMED", Message: "malformed provider payload"}

	// Source manager errors
	ErrAllSourcesExhausted = &Error{Code: "ALL_SOURCES_EXHAUSTED", Message: "all sources exhausted"}

	// Storage errors
	ErrStorage = &Error{Code: "STORAGE_ERROR", Message: "storage unavailable"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)

// Retryable reports whether err is worth another attempt on the same source.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// Kind returns the taxonomy code of err, or "UNKNOWN".
func Kind(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "UNKNOWN"
}
