package domain

import (
	"fmt"
	"math"
	"time"
)

// Category is the closed set of taxonomy kinds a label can belong to.
type Category string

// Taxonomy categories. Declaration order is the cross-category priority order
// used when ranking a book's selections.
const (
	CategoryGenre    Category = "genre"
	CategorySubgenre Category = "subgenre"
	CategoryTheme    Category = "theme"
	CategoryTrope    Category = "trope"
)

// Categories lists every category in ranking priority order.
var Categories = []Category{CategoryGenre, CategorySubgenre, CategoryTheme, CategoryTrope}

// ParseCategory converts a wire value into a Category.
// The match is case-sensitive; anything outside the closed set is rejected.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryGenre, CategorySubgenre, CategoryTheme, CategoryTrope:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown taxonomy category %q", s)
	}
}

// Priority returns the position of the category in the ranking order (0 = highest).
func (c Category) Priority() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

// TaxonomyTerm is a canonical taxonomy entry.
type TaxonomyTerm struct {
	ID        int64     `json:"id"`
	Category  Category  `json:"category"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// TaxonomySelection links a book to a term at a given rank.
// Rank is dense 1..N over the book's whole ordered selection list.
type TaxonomySelection struct {
	TaxonomyID int64    `json:"taxonomy_id"`
	Category   Category `json:"category"`
	Rank       int      `json:"rank"`
	Name       string   `json:"name,omitempty"` // populated on reads
	Slug       string   `json:"slug,omitempty"`
}

// Importance returns the display weight of a selection.
func (s TaxonomySelection) Importance() float64 {
	return Importance(s.Rank)
}

// Importance computes 1 / (1 + ln(rank)). It is strictly decreasing for rank >= 1.
// Ranks below 1 are clamped to 1.
func Importance(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	return 1 / (1 + math.Log(float64(rank)))
}

// TaxonomyLabels holds the raw, unresolved labels supplied for one book.
type TaxonomyLabels struct {
	Genres    []string
	Subgenres []string
	Themes    []string
	Tropes    []string
}

// ByCategory returns the labels for one category.
func (l TaxonomyLabels) ByCategory(c Category) []string {
	switch c {
	case CategoryGenre:
		return l.Genres
	case CategorySubgenre:
		return l.Subgenres
	case CategoryTheme:
		return l.Themes
	case CategoryTrope:
		return l.Tropes
	default:
		return nil
	}
}

// Labels extracts the taxonomy labels from a record.
func (r *BookRecord) Labels() TaxonomyLabels {
	return TaxonomyLabels{
		Genres:    r.Genres,
		Subgenres: r.Subgenres,
		Themes:    r.Themes,
		Tropes:    r.Tropes,
	}
}
