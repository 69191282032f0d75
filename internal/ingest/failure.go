// Package ingest turns batches of submitted book records into catalogue
// entries. The Materializer handles one record with a two-phase contract; the
// Engine fans a batch out over a worker pool and collects the outcomes.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// RecordFailure is a fatal outcome for one record.
type RecordFailure struct {
	Kind    domain.ErrorKind
	Message string
	Err     error
}

func (f *RecordFailure) Error() string {
	if f.Err != nil && f.Message == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *RecordFailure) Unwrap() error {
	return f.Err
}

// Code maps the failure kind onto the API error codes.
func (f *RecordFailure) Code() domainerrors.Code {
	switch f.Kind {
	case domain.ErrorKindValidation:
		return domainerrors.CodeValidation
	case domain.ErrorKindAuthorization:
		return domainerrors.CodeForbidden
	case domain.ErrorKindDuplicate:
		return domainerrors.CodeConflict
	case domain.ErrorKindStorage:
		return domainerrors.CodeStorage
	default:
		return domainerrors.CodeInternal
	}
}

func failure(kind domain.ErrorKind, err error, format string, args ...any) *RecordFailure {
	return &RecordFailure{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Classify converts any error returned while materializing a record into a
// RecordFailure. Unknown errors become InternalError.
func Classify(err error) *RecordFailure {
	if err == nil {
		return nil
	}

	var rf *RecordFailure
	if errors.As(err, &rf) {
		return rf
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failure(domain.ErrorKindCancelled, err, "record was not processed: %v", err)
	case errors.Is(err, store.ErrDuplicateIdentifier):
		return failure(domain.ErrorKindDuplicate, err, "a book with this isbn or asin already exists")
	case errors.Is(err, store.ErrInvalidReference):
		return failure(domain.ErrorKindValidation, err, "record references an unknown author or publisher")
	}

	var de *domainerrors.Error
	if errors.As(err, &de) {
		switch de.Code {
		case domainerrors.CodeValidation:
			return failure(domain.ErrorKindValidation, err, "%s", de.Message)
		case domainerrors.CodeForbidden, domainerrors.CodeUnauthorized:
			return failure(domain.ErrorKindAuthorization, err, "%s", de.Message)
		case domainerrors.CodeConflict:
			return failure(domain.ErrorKindDuplicate, err, "%s", de.Message)
		case domainerrors.CodeStorage:
			return failure(domain.ErrorKindStorage, err, "%s", de.Message)
		}
	}

	return failure(domain.ErrorKindInternal, err, "internal error")
}
