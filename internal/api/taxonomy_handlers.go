package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/taxonomy"
)

func (s *Server) registerTaxonomyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTaxonomy",
		Method:      http.MethodGet,
		Path:        "/api/v1/taxonomy",
		Summary:     "List taxonomy terms",
		Description: "Returns canonical terms, optionally for one category",
		Tags:        []string{"Taxonomy"},
		Security:    bearerSecurity,
	}, s.handleListTaxonomy)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTaxonomyTerm",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/taxonomy",
		Summary:       "Create taxonomy term",
		Description:   "Adds a canonical term (admin only). Existing terms are returned unchanged.",
		Tags:          []string{"Taxonomy", "Admin"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTaxonomyTerm)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookTaxonomy",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/taxonomy",
		Summary:     "Get book taxonomy",
		Description: "Returns a book's ranked taxonomy selections with importance weights",
		Tags:        []string{"Taxonomy", "Books"},
		Security:    bearerSecurity,
	}, s.handleGetBookTaxonomy)

	huma.Register(s.api, huma.Operation{
		OperationID: "reorderBookTaxonomy",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/taxonomy",
		Summary:     "Reorder book taxonomy",
		Description: "Reorders a book's selections; ranks are recomputed densely from the new order",
		Tags:        []string{"Taxonomy", "Books"},
		Security:    bearerSecurity,
	}, s.handleReorderBookTaxonomy)
}

// === DTOs ===

type ListTaxonomyInput struct {
	Category string `query:"category" enum:"genre,subgenre,theme,trope" doc:"Restrict to one category"`
}

type TermResponse struct {
	ID       int64  `json:"id" doc:"Term ID"`
	Category string `json:"category" doc:"genre, subgenre, theme or trope"`
	Name     string `json:"name" doc:"Display name"`
	Slug     string `json:"slug" doc:"URL-safe slug"`
}

type ListTaxonomyOutput struct {
	Body struct {
		Terms []TermResponse `json:"terms"`
	}
}

type CreateTermInput struct {
	Body struct {
		Category string `json:"category" enum:"genre,subgenre,theme,trope" doc:"Term category"`
		Name     string `json:"name" minLength:"1" maxLength:"100" doc:"Display name"`
	}
}

type CreateTermOutput struct {
	Body struct {
		TermResponse
		Created bool `json:"created" doc:"False when the term already existed"`
	}
}

type BookTaxonomyInput struct {
	ID int64 `path:"id" doc:"Book ID"`
}

type SelectionResponse struct {
	TaxonomyID int64   `json:"taxonomyId"`
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	Rank       int     `json:"rank" doc:"Dense rank, 1 is most important"`
	Importance float64 `json:"importance" doc:"1 / (1 + ln(rank))"`
}

type BookTaxonomyOutput struct {
	Body struct {
		BookID     int64               `json:"bookId"`
		Selections []SelectionResponse `json:"selections"`
	}
}

type ReorderTaxonomyInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body struct {
		Order []int64 `json:"order" doc:"Taxonomy IDs in the desired order; linked IDs left out are removed"`
	}
}

// === Handlers ===

func (s *Server) handleListTaxonomy(ctx context.Context, input *ListTaxonomyInput) (*ListTaxonomyOutput, error) {
	if _, err := GetClaims(ctx); err != nil {
		return nil, err
	}

	var category domain.Category
	if input.Category != "" {
		c, err := domain.ParseCategory(input.Category)
		if err != nil {
			return nil, domainerrors.Validation(err.Error())
		}
		category = c
	}

	terms, err := s.store.ListTerms(ctx, category)
	if err != nil {
		return nil, err
	}

	out := &ListTaxonomyOutput{}
	out.Body.Terms = make([]TermResponse, len(terms))
	for i, t := range terms {
		out.Body.Terms[i] = termResponse(t)
	}
	return out, nil
}

func (s *Server) handleCreateTaxonomyTerm(ctx context.Context, input *CreateTermInput) (*CreateTermOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}

	category, err := domain.ParseCategory(input.Body.Category)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	name := strings.Join(strings.Fields(input.Body.Name), " ")
	if name == "" {
		return nil, domainerrors.Validation("name is required")
	}

	term, created, err := s.store.UpsertTerm(ctx, category, name, taxonomy.Key(name), taxonomy.Slugify(name))
	if err != nil {
		return nil, err
	}

	out := &CreateTermOutput{}
	out.Body.TermResponse = termResponse(term)
	out.Body.Created = created
	return out, nil
}

func (s *Server) handleGetBookTaxonomy(ctx context.Context, input *BookTaxonomyInput) (*BookTaxonomyOutput, error) {
	if _, err := s.ownedBook(ctx, input.ID); err != nil {
		return nil, err
	}

	selections, err := s.store.ListBookTaxonomy(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return bookTaxonomyOutput(input.ID, selections), nil
}

func (s *Server) handleReorderBookTaxonomy(ctx context.Context, input *ReorderTaxonomyInput) (*BookTaxonomyOutput, error) {
	book, err := s.ownedBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.ListBookTaxonomy(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	reranked, err := taxonomy.Rerank(current, input.Body.Order)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceBookTaxonomy(ctx, input.ID, reranked); err != nil {
		return nil, err
	}

	s.reindexBook(ctx, book, reranked)
	return bookTaxonomyOutput(input.ID, reranked), nil
}

func termResponse(t *domain.TaxonomyTerm) TermResponse {
	return TermResponse{ID: t.ID, Category: string(t.Category), Name: t.Name, Slug: t.Slug}
}

func selectionResponses(selections []domain.TaxonomySelection) []SelectionResponse {
	out := make([]SelectionResponse, len(selections))
	for i, sel := range selections {
		out[i] = SelectionResponse{
			TaxonomyID: sel.TaxonomyID,
			Category:   string(sel.Category),
			Name:       sel.Name,
			Slug:       sel.Slug,
			Rank:       sel.Rank,
			Importance: sel.Importance(),
		}
	}
	return out
}

func bookTaxonomyOutput(bookID int64, selections []domain.TaxonomySelection) *BookTaxonomyOutput {
	out := &BookTaxonomyOutput{}
	out.Body.BookID = bookID
	out.Body.Selections = selectionResponses(selections)
	return out
}
