package api

import (
	"context"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
	"github.com/shelfwise/shelfwise-server/internal/media/images"
	"github.com/shelfwise/shelfwise-server/internal/search"
)

// ReportReader reads archived batch results.
type ReportReader interface {
	Get(ctx context.Context, batchID string) (*domain.BatchResult, error)
	ListByPublisher(ctx context.Context, publisherID int64, limit int) ([]*domain.BatchResult, error)
}

// Services groups what the API server delegates to.
type Services struct {
	Engine  *ingest.Engine
	Reports ReportReader
	Tokens  *auth.TokenService
	Media   *images.Storage     // Stored book images
	Search  *search.SearchIndex // Optional; search routes answer 503 without it
}
