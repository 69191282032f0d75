package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// CreatePublisher inserts a publisher and returns it with its assigned ID.
func (s *Store) CreatePublisher(ctx context.Context, name string) (*domain.Publisher, error) {
	p := &domain.Publisher{Name: name, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO publishers (name, created_at) VALUES (?, ?)`, p.Name, formatTime(p.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert publisher: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPublisher retrieves a publisher by ID.
// Returns store.ErrNotFound if the publisher does not exist.
func (s *Store) GetPublisher(ctx context.Context, id int64) (*domain.Publisher, error) {
	var (
		p         domain.Publisher
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM publishers WHERE id = ?`, id).Scan(&p.ID, &p.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateAuthor inserts an author and returns it with its assigned ID.
func (s *Store) CreateAuthor(ctx context.Context, name string) (*domain.Author, error) {
	a := &domain.Author{Name: name, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (name, created_at) VALUES (?, ?)`, a.Name, formatTime(a.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAuthor retrieves an author by ID.
// Returns store.ErrNotFound if the author does not exist.
func (s *Store) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	var (
		a         domain.Author
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM authors WHERE id = ?`, id).Scan(&a.ID, &a.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// StartContract opens an ownership edge between a publisher and an author.
// Returns store.ErrAlreadyExists if an open contract already exists and
// store.ErrInvalidReference if either side is unknown.
func (s *Store) StartContract(ctx context.Context, publisherID, authorID int64, start time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ownership_edges (publisher_id, author_id, contract_start)
		VALUES (?, ?, ?)`,
		publisherID, authorID, formatTime(start))
	switch {
	case isUniqueViolation(err):
		return store.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return store.ErrInvalidReference.WithCause(err)
	case err != nil:
		return fmt.Errorf("insert ownership edge: %w", err)
	}
	return nil
}

// EndContract closes the open contract between a publisher and an author.
// Any end date, past or future, makes the edge inactive immediately.
// Returns store.ErrNotFound if there is no open contract.
func (s *Store) EndContract(ctx context.Context, publisherID, authorID int64, end time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ownership_edges SET contract_end = ?
		WHERE publisher_id = ? AND author_id = ? AND contract_end IS NULL`,
		formatTime(end), publisherID, authorID)
	if err != nil {
		return fmt.Errorf("end contract: %w", err)
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

// ActiveOwnershipEdge returns the open contract between a publisher and an author.
// Returns store.ErrNotFound when none is active.
func (s *Store) ActiveOwnershipEdge(ctx context.Context, publisherID, authorID int64) (*domain.OwnershipEdge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT publisher_id, author_id, contract_start, contract_end
		FROM ownership_edges
		WHERE publisher_id = ? AND author_id = ? AND contract_end IS NULL
		LIMIT 1`,
		publisherID, authorID)

	edge, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// ListOwnershipEdges returns every contract, open or closed, held by a publisher.
func (s *Store) ListOwnershipEdges(ctx context.Context, publisherID int64) ([]*domain.OwnershipEdge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT publisher_id, author_id, contract_start, contract_end
		FROM ownership_edges WHERE publisher_id = ?
		ORDER BY author_id, contract_start`, publisherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []*domain.OwnershipEdge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func scanEdge(scanner interface{ Scan(dest ...any) error }) (*domain.OwnershipEdge, error) {
	var (
		e     domain.OwnershipEdge
		start string
		end   sql.NullString
	)
	if err := scanner.Scan(&e.PublisherID, &e.AuthorID, &start, &end); err != nil {
		return nil, err
	}

	var err error
	if e.ContractStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if e.ContractEnd, err = parseNullableTime(end); err != nil {
		return nil, err
	}
	return &e, nil
}
