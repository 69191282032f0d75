package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// SaveImageAsset stores the asset for its (book, role) slot, replacing any
// previous asset in that slot.
// Returns store.ErrInvalidReference if the book does not exist.
func (s *Store) SaveImageAsset(ctx context.Context, a *domain.ImageAsset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO book_images (book_id, role, url, object_key, width, height, size_kb, blur_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id, role) DO UPDATE SET
			url = excluded.url,
			object_key = excluded.object_key,
			width = excluded.width,
			height = excluded.height,
			size_kb = excluded.size_kb,
			blur_hash = excluded.blur_hash,
			created_at = excluded.created_at`,
		a.BookID,
		string(a.Role),
		a.URL,
		a.ObjectKey,
		a.Width,
		a.Height,
		a.SizeKB,
		nullString(a.BlurHash),
		formatTime(a.CreatedAt),
	)
	if isForeignKeyViolation(err) {
		return store.ErrInvalidReference.WithCause(err)
	}
	if err != nil {
		return fmt.Errorf("insert image asset: %w", err)
	}
	return nil
}

// ListBookImages returns a book's image assets in canonical role order.
func (s *Store) ListBookImages(ctx context.Context, bookID int64) ([]*domain.ImageAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, role, url, object_key, width, height, size_kb, blur_hash, created_at
		FROM book_images WHERE book_id = ?`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byRole := make(map[domain.ImageRole]*domain.ImageAsset)
	for rows.Next() {
		var (
			a         domain.ImageAsset
			role      string
			blurHash  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.BookID, &role, &a.URL, &a.ObjectKey, &a.Width, &a.Height,
			&a.SizeKB, &blurHash, &createdAt); err != nil {
			return nil, err
		}
		if a.Role, err = domain.ParseImageRole(role); err != nil {
			return nil, err
		}
		a.BlurHash = blurHash.String
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		byRole[a.Role] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assets := make([]*domain.ImageAsset, 0, len(byRole))
	for _, role := range domain.ImageRoles {
		if a, ok := byRole[role]; ok {
			assets = append(assets, a)
		}
	}
	return assets, nil
}
