package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// termColumns must match the scan order in scanTerm.
const termColumns = `id, category, name, name_key, slug, created_at`

func scanTerm(scanner interface{ Scan(dest ...any) error }) (*domain.TaxonomyTerm, string, error) {
	var (
		t         domain.TaxonomyTerm
		category  string
		nameKey   string
		createdAt string
	)
	if err := scanner.Scan(&t.ID, &category, &t.Name, &nameKey, &t.Slug, &createdAt); err != nil {
		return nil, "", err
	}

	var err error
	if t.Category, err = domain.ParseCategory(category); err != nil {
		return nil, "", err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, "", err
	}
	return &t, nameKey, nil
}

// UpsertTerm inserts a canonical term unless one with the same category and
// name key exists. Returns the stored term and whether it was created.
func (s *Store) UpsertTerm(ctx context.Context, category domain.Category, name, nameKey, slug string) (*domain.TaxonomyTerm, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO taxonomy_terms (category, name, name_key, slug, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (category, name_key) DO NOTHING`,
		string(category), name, nameKey, slug, formatTime(time.Now().UTC()))
	if err != nil {
		return nil, false, fmt.Errorf("upsert taxonomy term: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM taxonomy_terms WHERE category = ? AND name_key = ?`,
		string(category), nameKey)
	t, _, err := scanTerm(row)
	if err != nil {
		return nil, false, fmt.Errorf("read taxonomy term: %w", err)
	}
	return t, n > 0, nil
}

// LookupTerms returns the terms of one category whose name key is in keys,
// keyed by name key. Keys with no term are absent from the map.
func (s *Store) LookupTerms(ctx context.Context, category domain.Category, keys []string) (map[string]*domain.TaxonomyTerm, error) {
	found := make(map[string]*domain.TaxonomyTerm, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, string(category))
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+termColumns+` FROM taxonomy_terms
		WHERE category = ? AND name_key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup taxonomy terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, key, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		found[key] = t
	}
	return found, rows.Err()
}

// ListTerms returns canonical terms ordered by category priority then name.
// An empty category lists every term.
func (s *Store) ListTerms(ctx context.Context, category domain.Category) ([]*domain.TaxonomyTerm, error) {
	query := `SELECT ` + termColumns + ` FROM taxonomy_terms`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY CASE category
		WHEN 'genre' THEN 0 WHEN 'subgenre' THEN 1 WHEN 'theme' THEN 2 ELSE 3 END, name_key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := []*domain.TaxonomyTerm{}
	for rows.Next() {
		t, _, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// ReplaceBookTaxonomy replaces all taxonomy links for a book in a single transaction.
// Ranks must already be dense; the (book, rank) unique index rejects anything else.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) ReplaceBookTaxonomy(ctx context.Context, bookID int64, selections []domain.TaxonomySelection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check book: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM book_taxonomy WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("delete book_taxonomy: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO book_taxonomy (book_id, taxonomy_id, rank, created_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now().UTC())
	for _, sel := range selections {
		if _, err := stmt.ExecContext(ctx, bookID, sel.TaxonomyID, sel.Rank, now); err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrInvalidReference.WithCause(err)
			}
			return fmt.Errorf("insert book_taxonomy: %w", err)
		}
	}

	return tx.Commit()
}

// ListBookTaxonomy returns a book's selections in rank order with term names and slugs.
func (s *Store) ListBookTaxonomy(ctx context.Context, bookID int64) ([]domain.TaxonomySelection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bt.taxonomy_id, t.category, bt.rank, t.name, t.slug
		FROM book_taxonomy bt
		JOIN taxonomy_terms t ON t.id = bt.taxonomy_id
		WHERE bt.book_id = ?
		ORDER BY bt.rank ASC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := []domain.TaxonomySelection{}
	for rows.Next() {
		var (
			sel      domain.TaxonomySelection
			category string
		)
		if err := rows.Scan(&sel.TaxonomyID, &category, &sel.Rank, &sel.Name, &sel.Slug); err != nil {
			return nil, err
		}
		if sel.Category, err = domain.ParseCategory(category); err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}
	return selections, rows.Err()
}
