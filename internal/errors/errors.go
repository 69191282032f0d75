// Package errors defines the coded errors Shelfwise returns across its API and
// CLI boundaries.
//
// A code decides the HTTP status a whole request fails with (an unknown
// publisher, a forbidden token, an oversized batch). Per-record ingestion
// outcomes are not errors of this package: they are reported inside the
// batch result, and ingest.RecordFailure.Code maps them back here when a
// single-record call needs a status.
//
//	if errors.Is(err, errors.ErrValidation) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Is and As are re-exported so callers need a single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Code is the machine-readable code rendered in API error envelopes.
type Code string

const (
	CodeValidation      Code = "VALIDATION"        // malformed batch envelope or request field
	CodeUnauthorized    Code = "UNAUTHORIZED"      // missing or invalid bearer token
	CodeForbidden       Code = "FORBIDDEN"         // token lacks the publisher or admin role
	CodeNotFound        Code = "NOT_FOUND"         // unknown or foreign batch, book or term
	CodeConflict        Code = "CONFLICT"          // duplicate isbn/asin or taxonomy name
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS" // submission rate limit
	CodeStorage         Code = "STORAGE"           // image object store failure
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus maps the code onto a response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error. Details, when set, are rendered next to the
// message (the validator puts per-field problems there).
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the status for e's code.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Sentinels for errors.Is.
var (
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
	ErrUnauthorized    = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden       = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict        = &Error{Code: CodeConflict, Message: "conflict"}
	ErrTooManyRequests = &Error{Code: CodeTooManyRequests, Message: "too many requests"}
	ErrStorage         = &Error{Code: CodeStorage, Message: "storage error"}
)

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// ValidationWithDetails attaches per-field problems to a validation error.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Storagef(format string, args ...any) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf(format, args...)}
}

func TooManyRequests(msg string) *Error {
	return &Error{Code: CodeTooManyRequests, Message: msg}
}

// Wrap gives err a code and a caller-facing message. The cause stays
// reachable through errors.Is and errors.As.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
