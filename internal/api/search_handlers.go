package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Full-text search over titles, authors, descriptions and taxonomy. Publisher tokens only see their own books.",
		Tags:        []string{"Books", "Search"},
		Security:    bearerSecurity,
	}, s.handleSearchBooks)
}

type SearchBooksInput struct {
	Query       string `query:"q" doc:"Search text; empty lists everything matching the filters"`
	Taxonomy    string `query:"taxonomy" doc:"Comma-separated taxonomy slugs that must all match"`
	Language    string `query:"language" doc:"ISO 639-1 language code"`
	MinYear     int    `query:"min_year" doc:"Earliest publication year"`
	MaxYear     int    `query:"max_year" doc:"Latest publication year"`
	PublisherID int64  `query:"publisherId" doc:"Publisher filter (admin tokens only)"`
	Sort        string `query:"sort" enum:"relevance,title,recent" default:"relevance" doc:"Sort order"`
	Limit       int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
	Offset      int    `query:"offset" minimum:"0" doc:"Results to skip"`
}

type SearchBooksOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is not available")
	}

	params := search.DefaultSearchParams()
	params.Query = strings.TrimSpace(input.Query)
	params.Language = input.Language
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear
	params.Limit = input.Limit
	params.Offset = input.Offset
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Sort == "title" {
		params.SortOrder = "asc"
	}
	for slug := range strings.SplitSeq(input.Taxonomy, ",") {
		if slug = strings.TrimSpace(slug); slug != "" {
			params.TaxonomySlugs = append(params.TaxonomySlugs, slug)
		}
	}

	if claims.IsAdmin() {
		params.PublisherID = input.PublisherID
	} else {
		params.PublisherID = claims.PublisherID
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return &SearchBooksOutput{Body: result}, nil
}
