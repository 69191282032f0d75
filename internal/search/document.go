// Package search provides full-text search over the catalogue using Bleve.
// Every book created by an ingestion batch is indexed with its author,
// publisher and ranked taxonomy so it can be found by title, author or term.
package search

import (
	"strconv"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// BookDocument is the denormalized form of a book stored in the index.
//
// Author and taxonomy names are copied in so a single query can match a
// title, an author or a trope without touching the relational store.
type BookDocument struct {
	ID          string `json:"id"` // decimal book ID
	Title       string `json:"name"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	PublisherID int64  `json:"publisher_id"`
	ISBN        string `json:"isbn,omitempty"`
	ASIN        string `json:"asin,omitempty"`
	Language    string `json:"language,omitempty"`
	Formats     []string

	// Taxonomy in rank order. Names feed full-text search; slugs feed filters and facets.
	TaxonomyNames []string
	TaxonomySlugs []string

	PublishYear int
	CreatedAt   int64 // Unix millis
}

// ToMap converts the document to a map with the field names used by the mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":           d.ID,
		"name":         d.Title,
		"publisher_id": float64(d.PublisherID),
		"created_at":   float64(d.CreatedAt),
	}

	// Optional fields - only add if non-empty
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.ASIN != "" {
		m["asin"] = d.ASIN
	}
	if d.Language != "" {
		m["language"] = d.Language
	}
	if len(d.Formats) > 0 {
		m["formats"] = d.Formats
	}
	if len(d.TaxonomyNames) > 0 {
		m["taxonomy"] = strings.Join(d.TaxonomyNames, " ")
	}
	if len(d.TaxonomySlugs) > 0 {
		m["taxonomy_slugs"] = d.TaxonomySlugs
	}
	if d.PublishYear > 0 {
		m["publish_year"] = float64(d.PublishYear)
	}
	return m
}

// DocumentID is the index key for a book.
func DocumentID(bookID int64) string {
	return strconv.FormatInt(bookID, 10)
}

// BookToDocument converts a book and its denormalized relations into a BookDocument.
// The caller supplies the author name and selections since search does not
// depend on the store.
func BookToDocument(book *domain.Book, author string, selections []domain.TaxonomySelection) *BookDocument {
	doc := &BookDocument{
		ID:          DocumentID(book.ID),
		Title:       book.Title,
		Description: book.Description,
		Author:      author,
		PublisherID: book.PublisherID,
		ISBN:        book.ISBN,
		ASIN:        book.ASIN,
		Language:    book.Language,
		Formats:     book.Formats,
		CreatedAt:   book.CreatedAt.UnixMilli(),
	}

	for _, s := range selections {
		if s.Name == "" {
			continue
		}
		doc.TaxonomyNames = append(doc.TaxonomyNames, s.Name)
		if s.Slug != "" {
			doc.TaxonomySlugs = append(doc.TaxonomySlugs, s.Slug)
		}
	}

	// PublishedDate is YYYY-MM-DD after validation.
	if len(book.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(book.PublishedDate[:4]); err == nil {
			doc.PublishYear = year
		}
	}
	return doc
}
