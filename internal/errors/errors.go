// Package errors provides standardized domain errors with codes for the wardrobe API.
//
// Usage:
//
//	// In services - return typed errors
//	if item == nil {
//	    return errors.NotFoundf("item %s not found", id)
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeValidation:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is = errors.Is
	As = errors.As
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeValidation       Code = "VALIDATION"
	CodePersistence      Code = "PERSISTENCE"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeCorruptTagData   Code = "CORRUPT_TAG_DATA"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a caller may reasonably retry the failed request unchanged.
// The core never retries on its own.
func (c Code) Retryable() bool {
	switch c {
	case CodePersistence, CodeStoreUnavailable, CodeRateLimited:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// GetStatus returns the HTTP status code. It lets huma write a domain error
// returned from a handler with the right status.
func (e *Error) GetStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrPersistence      = &Error{Code: CodePersistence, Message: "persistence error"}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable, Message: "store unavailable"}
	ErrCorruptTagData   = &Error{Code: CodeCorruptTagData, Message: "corrupt tag data"}
	ErrRateLimited      = &Error{Code: CodeRateLimited, Message: "rate limited"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Persistence wraps a failed store write.
func Persistence(err error, msg string) *Error {
	return &Error{Code: CodePersistence, Message: msg, cause: err}
}

// StoreUnavailable wraps a store read that could not be served.
func StoreUnavailable(err error, msg string) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: msg, cause: err}
}

// CorruptTagData wraps a stored tags value that could not be decoded.
func CorruptTagData(err error, msg string) *Error {
	return &Error{Code: CodeCorruptTagData, Message: msg, cause: err}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// CodeOf returns the code of the first domain error in err's chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
