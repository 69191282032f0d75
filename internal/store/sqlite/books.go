package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, publisher_id, author_id, title, description, page_count, formats,
	published_date, isbn, asin, language, created_at, updated_at`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		desc      sql.NullString
		formats   string
		published sql.NullString
		isbn      sql.NullString
		asin      sql.NullString
		language  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.PublisherID,
		&b.AuthorID,
		&b.Title,
		&desc,
		&b.PageCount,
		&formats,
		&published,
		&isbn,
		&asin,
		&language,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(formats), &b.Formats); err != nil {
		return nil, fmt.Errorf("decode formats for book %d: %w", b.ID, err)
	}

	b.Description = desc.String
	b.PublishedDate = published.String
	b.ISBN = isbn.String
	b.ASIN = asin.String
	b.Language = language.String

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// CreateBook inserts the core book row in its own transaction and sets b.ID.
// Returns store.ErrDuplicateIdentifier when the ISBN or ASIN is already
// catalogued and store.ErrInvalidReference for an unknown publisher or author.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	formats, err := json.Marshal(b.Formats)
	if err != nil {
		return fmt.Errorf("encode formats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (publisher_id, author_id, title, description, page_count, formats,
			published_date, isbn, asin, language, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.PublisherID,
		b.AuthorID,
		b.Title,
		nullString(b.Description),
		b.PageCount,
		string(formats),
		nullString(b.PublishedDate),
		nullString(b.ISBN),
		nullString(b.ASIN),
		nullString(b.Language),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	switch {
	case isUniqueViolation(err):
		return store.ErrDuplicateIdentifier.WithCause(err)
	case isForeignKeyViolation(err):
		return store.ErrInvalidReference.WithCause(err)
	case err != nil:
		return fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("book id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateIdentifier.WithCause(err)
		}
		return fmt.Errorf("commit: %w", err)
	}

	b.ID = id
	return nil
}

// GetBook retrieves a book by its ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBook removes a book; taxonomy links and image rows cascade.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListBooks returns up to limit books with IDs greater than afterID, in ID order.
// Used to rebuild the search index page by page.
func (s *Store) ListBooks(ctx context.Context, afterID int64, limit int) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id > ? ORDER BY id ASC LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CountBooks returns the number of catalogued books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}
