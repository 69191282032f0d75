// Package store holds persistence shared by the ingestion pipeline: the storage
// error vocabulary and the Badger-backed archive of batch reports. The relational
// catalogue lives in the sqlite subpackage.
package store

import (
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code and message, so sentinels survive WithCause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	// ErrDuplicateIdentifier is returned when a book's ISBN or ASIN is already catalogued.
	ErrDuplicateIdentifier = &Error{
		Code:    http.StatusConflict,
		Message: "duplicate book identifier",
	}

	// ErrInvalidReference is returned when a row points at a missing parent,
	// such as a book for an unknown author.
	ErrInvalidReference = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid reference",
	}
)
