package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfwise/shelfwise-server/internal/store"
)

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: books.isbn")
	err := store.ErrDuplicateIdentifier.WithCause(cause)

	assert.Contains(t, err.Error(), "duplicate book identifier")
	assert.Contains(t, err.Error(), "books.isbn")
	assert.ErrorIs(t, err, cause)
}

func TestError_IsSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("insert book: %w", store.ErrDuplicateIdentifier.WithCause(errors.New("boom")))

	assert.ErrorIs(t, err, store.ErrDuplicateIdentifier)
	assert.NotErrorIs(t, err, store.ErrAlreadyExists)
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		err  *store.Error
		code int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrAlreadyExists, http.StatusConflict},
		{store.ErrDuplicateIdentifier, http.StatusConflict},
		{store.ErrInvalidReference, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.HTTPCode())
		})
	}
}
