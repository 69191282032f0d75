package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

func validRecord() domain.BookRecord {
	return domain.BookRecord{
		Title:         "The Quiet Orchard",
		AuthorID:      3,
		Formats:       []string{"hardcover", "ebook"},
		PublishedDate: "2021-05-04",
		ISBN:          "9780306406157",
		ASIN:          "B000FC0PDA",
	}
}

func TestValidator_ValidRecord(t *testing.T) {
	assert.NoError(t, validation.New().Validate(validRecord()))
}

func TestValidator_RecordErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		mutate    func(*domain.BookRecord)
		wantField string
	}{
		{"missing title", func(r *domain.BookRecord) { r.Title = "" }, "title"},
		{"title too long", func(r *domain.BookRecord) { r.Title = strings.Repeat("x", 501) }, "title"},
		{"missing author", func(r *domain.BookRecord) { r.AuthorID = 0 }, "authorId"},
		{"no formats", func(r *domain.BookRecord) { r.Formats = nil }, "formats"},
		{"blank format", func(r *domain.BookRecord) { r.Formats = []string{"ebook", ""} }, "formats[1]"},
		{"bad date", func(r *domain.BookRecord) { r.PublishedDate = "04/05/2021" }, "publishedDate"},
		{"bad isbn checksum", func(r *domain.BookRecord) { r.ISBN = "9780306406158" }, "isbn"},
		{"short asin", func(r *domain.BookRecord) { r.ASIN = "B000" }, "asin"},
		{"negative pages", func(r *domain.BookRecord) { r.PageCount = -1 }, "pageCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := v.Validate(rec)
			require.Error(t, err)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
			assert.Contains(t, domainErr.Message, tt.wantField)
		})
	}
}

func TestValidator_OptionalFieldsMayBeEmpty(t *testing.T) {
	rec := validRecord()
	rec.PublishedDate = ""
	rec.ISBN = ""
	rec.ASIN = ""

	assert.NoError(t, validation.New().Validate(rec))
}
