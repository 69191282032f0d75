package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book with its author, ranked taxonomy and image slots",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleGetBook)
}

// === DTOs ===

type GetBookInput struct {
	ID int64 `path:"id" doc:"Book ID"`
}

type ImageResponse struct {
	Role     string `json:"role" doc:"Image slot"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	SizeKB   int    `json:"sizeKb"`
	BlurHash string `json:"blurHash,omitempty"`
}

type BookResponse struct {
	ID            int64               `json:"id"`
	PublisherID   int64               `json:"publisherId"`
	AuthorID      int64               `json:"authorId"`
	AuthorName    string              `json:"authorName,omitempty"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	PageCount     int                 `json:"pageCount,omitempty"`
	Formats       []string            `json:"formats"`
	PublishedDate string              `json:"publishedDate,omitempty"`
	ISBN          string              `json:"isbn,omitempty"`
	ASIN          string              `json:"asin,omitempty"`
	Language      string              `json:"language,omitempty"`
	Taxonomy      []SelectionResponse `json:"taxonomy"`
	Images        []ImageResponse     `json:"images"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type BookOutput struct {
	Body BookResponse
}

// === Handlers ===

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.ownedBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	selections, err := s.store.ListBookTaxonomy(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	assets, err := s.store.ListBookImages(ctx, book.ID)
	if err != nil {
		return nil, err
	}

	resp := BookResponse{
		ID:            book.ID,
		PublisherID:   book.PublisherID,
		AuthorID:      book.AuthorID,
		Title:         book.Title,
		Description:   book.Description,
		PageCount:     book.PageCount,
		Formats:       book.Formats,
		PublishedDate: book.PublishedDate,
		ISBN:          book.ISBN,
		ASIN:          book.ASIN,
		Language:      book.Language,
		Taxonomy:      selectionResponses(selections),
		Images:        make([]ImageResponse, len(assets)),
		CreatedAt:     book.CreatedAt,
	}
	if author, err := s.store.GetAuthor(ctx, book.AuthorID); err == nil {
		resp.AuthorName = author.Name
	}
	for i, a := range assets {
		resp.Images[i] = ImageResponse{
			Role:     string(a.Role),
			URL:      a.URL,
			Width:    a.Width,
			Height:   a.Height,
			SizeKB:   a.SizeKB,
			BlurHash: a.BlurHash,
		}
	}
	return &BookOutput{Body: resp}, nil
}

// ownedBook loads a book the caller may act on. Books of other publishers
// are reported as missing.
func (s *Server) ownedBook(ctx context.Context, id int64) (*domain.Book, error) {
	if _, err := GetClaims(ctx); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %d not found", id)
		}
		return nil, err
	}
	if err := RequireActingFor(ctx, book.PublisherID, "book"); err != nil {
		return nil, domainerrors.NotFoundf("book %d not found", id)
	}
	return book, nil
}

// reindexBook refreshes a book's search document after a change.
func (s *Server) reindexBook(ctx context.Context, book *domain.Book, selections []domain.TaxonomySelection) {
	if s.services.Search == nil {
		return
	}
	var authorName string
	if author, err := s.store.GetAuthor(ctx, book.AuthorID); err == nil {
		authorName = author.Name
	}
	if err := s.services.Search.IndexBook(search.BookToDocument(book, authorName, selections)); err != nil {
		s.logger.Warn("failed to reindex book", "book_id", book.ID, "error", err)
	}
}
