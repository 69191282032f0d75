package domain

import (
	"fmt"
	"time"
)

// ErrorKind classifies a fatal per-record failure.
type ErrorKind string

// Fatal error kinds reported in BatchResult.Errors.
const (
	ErrorKindValidation    ErrorKind = "ValidationError"
	ErrorKindAuthorization ErrorKind = "AuthorizationError"
	ErrorKindDuplicate     ErrorKind = "DuplicateError"
	ErrorKindStorage       ErrorKind = "StorageError"
	ErrorKindCancelled     ErrorKind = "CancelledError"
	ErrorKindInternal      ErrorKind = "InternalError"
)

// WarningKind classifies a non-fatal issue attached to a created book.
type WarningKind string

// Warning kinds attached to BatchResult.Created entries.
const (
	WarningTaxonomyUnresolved   WarningKind = "TaxonomyUnresolved"
	WarningTaxonomyCapped       WarningKind = "TaxonomyCapped"
	WarningTaxonomyDuplicate    WarningKind = "TaxonomyDuplicate"
	WarningTaxonomyBelowMinimum WarningKind = "TaxonomyBelowMinimum"
	WarningTaxonomyLinkFailed   WarningKind = "TaxonomyLinkFailed"
	WarningImageRoleMissing     WarningKind = "ImageRoleMissing"
	WarningImageStorageFailed   WarningKind = "ImageStorageFailed"
)

// Warning is a structured non-fatal outcome.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject,omitempty"` // label, role, ...
	Detail  string      `json:"detail,omitempty"`
}

// String renders the warning in the wire format "Kind: subject (detail)".
func (w Warning) String() string {
	switch {
	case w.Subject != "" && w.Detail != "":
		return fmt.Sprintf("%s: %s (%s)", w.Kind, w.Subject, w.Detail)
	case w.Subject != "":
		return fmt.Sprintf("%s: %s", w.Kind, w.Subject)
	case w.Detail != "":
		return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
	default:
		return string(w.Kind)
	}
}

// CreatedBook is a successful batch entry.
type CreatedBook struct {
	Index    int       `json:"index"`
	BookID   int64     `json:"bookId"`
	Title    string    `json:"title"`
	Warnings []Warning `json:"warnings"`
}

// WarningStrings renders every warning for the wire format.
func (c CreatedBook) WarningStrings() []string {
	out := make([]string, len(c.Warnings))
	for i, w := range c.Warnings {
		out[i] = w.String()
	}
	return out
}

// RecordError is a failed batch entry.
type RecordError struct {
	Index     int       `json:"index"`
	Title     string    `json:"title"`
	ErrorKind ErrorKind `json:"errorKind"`
	Message   string    `json:"message"`
}

// BatchResult is the immutable outcome of one batch run.
// Created and Errors are ordered by input index.
type BatchResult struct {
	BatchID      string        `json:"batchId"`
	PublisherID  int64         `json:"publisherId"`
	Created      []CreatedBook `json:"created"`
	Errors       []RecordError `json:"errors"`
	SuccessCount int           `json:"successful"`
	FailureCount int           `json:"failed"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
}

// Total returns the number of records the batch accounted for.
func (r *BatchResult) Total() int {
	return r.SuccessCount + r.FailureCount
}
