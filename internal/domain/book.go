// Package domain contains the core catalogue entities and ingestion types for Shelfwise.
package domain

import "time"

// Book is a catalogue entry as persisted in the relational store.
type Book struct {
	ID            int64     `json:"id"`
	PublisherID   int64     `json:"publisher_id"`
	AuthorID      int64     `json:"author_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	Formats       []string  `json:"formats"`
	PublishedDate string    `json:"published_date,omitempty"` // YYYY-MM-DD
	ISBN          string    `json:"isbn,omitempty"`
	ASIN          string    `json:"asin,omitempty"`
	Language      string    `json:"language,omitempty"` // ISO 639-1 when recognised
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (b *Book) InitTimestamps() {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// BookRecord is one decoded input row of a batch submission.
// It is transient: the materializer turns it into a Book plus links and assets.
type BookRecord struct {
	Title         string            `json:"title" validate:"required,max=500"`
	Description   string            `json:"description,omitempty" validate:"max=20000"`
	AuthorID      int64             `json:"authorId" validate:"required,gt=0"`
	PageCount     int               `json:"pageCount,omitempty" validate:"gte=0"`
	Formats       []string          `json:"formats" validate:"required,min=1,dive,required,max=40"`
	PublishedDate string            `json:"publishedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ISBN          string            `json:"isbn,omitempty" validate:"omitempty,isbn"`
	ASIN          string            `json:"asin,omitempty" validate:"omitempty,len=10,alphanum"`
	Language      string            `json:"language,omitempty" validate:"max=40"`
	Genres        []string          `json:"genres,omitempty"`
	Subgenres     []string          `json:"subgenres,omitempty"`
	Themes        []string          `json:"themes,omitempty"`
	Tropes        []string          `json:"tropes,omitempty"`
	Images        map[string]string `json:"images,omitempty"` // role -> blob key or http(s) URL
}

// Label returns a human-readable identifier for error reports.
func (r *BookRecord) Label() string {
	if r.Title != "" {
		return r.Title
	}
	if r.ISBN != "" {
		return "isbn " + r.ISBN
	}
	return "untitled"
}
