// Package ownership decides whether a publisher may publish books by an author.
package ownership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// EdgeStore looks up the active contract between a publisher and an author.
type EdgeStore interface {
	ActiveOwnershipEdge(ctx context.Context, publisherID, authorID int64) (*domain.OwnershipEdge, error)
}

// Guard checks publisher/author contracts. It fails closed.
type Guard struct {
	edges  EdgeStore
	logger *slog.Logger
}

// NewGuard creates a guard over edges.
func NewGuard(edges EdgeStore, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{edges: edges, logger: logger}
}

// Verify reports whether publisherID currently holds a contract for authorID.
// Any lookup failure denies; the failure is logged, never returned.
func (g *Guard) Verify(ctx context.Context, publisherID, authorID int64) bool {
	if publisherID <= 0 || authorID <= 0 {
		return false
	}

	edge, err := g.edges.ActiveOwnershipEdge(ctx, publisherID, authorID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false
	case err != nil:
		g.logger.Error("ownership lookup failed, denying",
			"publisher_id", publisherID,
			"author_id", authorID,
			"error", err,
		)
		return false
	case edge == nil:
		return false
	}
	return edge.IsActive()
}
