package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/shelfwise/shelfwise-server/internal/normalize"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query string // User's search query

	// Filters
	PublisherID   int64    // Restrict to one publisher's books (0 = all)
	TaxonomySlugs []string // Every slug must be present
	Language      string   // ISO 639-1
	MinYear       int
	MaxYear       int

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "title", "recent"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitzero"`
}

// SearchHit represents a single matching book.
type SearchHit struct {
	BookID        int64             `json:"book_id"`
	Score         float64           `json:"score"`
	Title         string            `json:"title"`
	Author        string            `json:"author,omitempty"`
	ISBN          string            `json:"isbn,omitempty"`
	Language      string            `json:"language,omitempty"`
	PublishYear   int               `json:"publish_year,omitempty"`
	TaxonomySlugs []string          `json:"taxonomy_slugs,omitempty"`
	Highlights    map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Taxonomy  []FacetCount `json:"taxonomy,omitempty"`
	Languages []FacetCount `json:"languages,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("taxonomy_slugs", bleve.NewFacetRequest("taxonomy_slugs", 20))
		searchRequest.AddFacet("language", bleve.NewFacetRequest("language", 10))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("author")
	}

	searchRequest.Fields = []string{"id", "name", "author", "isbn", "language", "publish_year", "taxonomy_slugs"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{Score: hit.Score}
		searchHit.BookID, _ = strconv.ParseInt(hit.ID, 10, 64)

		if v, ok := hit.Fields["name"].(string); ok {
			searchHit.Title = v
		}
		if v, ok := hit.Fields["author"].(string); ok {
			searchHit.Author = v
		}
		if v, ok := hit.Fields["isbn"].(string); ok {
			searchHit.ISBN = v
		}
		if v, ok := hit.Fields["language"].(string); ok {
			searchHit.Language = v
		}
		if v, ok := hit.Fields["publish_year"].(float64); ok {
			searchHit.PublishYear = int(v)
		}
		searchHit.TaxonomySlugs = stringsField(hit.Fields["taxonomy_slugs"])

		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	if params.IncludeFacets {
		result.Facets = SearchFacets{
			Taxonomy:  facetCounts(searchResult, "taxonomy_slugs"),
			Languages: facetCounts(searchResult, "language"),
		}
	}

	return result, nil
}

// stringsField reads a stored field that may hold one value or many.
func stringsField(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		nameMatch := bleve.NewMatchQuery(q)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)

		taxonomyMatch := bleve.NewMatchQuery(q)
		taxonomyMatch.SetField("taxonomy")

		descMatch := bleve.NewMatchQuery(q)
		descMatch.SetField("description")
		descMatch.SetBoost(0.5)

		// Typo tolerance on titles
		fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)

		textQueries := []query.Query{nameMatch, authorMatch, taxonomyMatch, descMatch, fuzzyQuery}

		// Prefix query for autocomplete (minimum 2 chars)
		if len(q) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(q))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// A pasted ISBN or ASIN should land on its book first.
		if id := normalize.Identifier(q); id != "" {
			isbnQuery := bleve.NewTermQuery(id)
			isbnQuery.SetField("isbn")
			isbnQuery.SetBoost(5.0)
			asinQuery := bleve.NewTermQuery(id)
			asinQuery.SetField("asin")
			asinQuery.SetBoost(5.0)
			textQueries = append(textQueries, isbnQuery, asinQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.PublisherID > 0 {
		id := float64(params.PublisherID)
		inclusive := true
		pq := bleve.NewNumericRangeInclusiveQuery(&id, &id, &inclusive, &inclusive)
		pq.SetField("publisher_id")
		queries = append(queries, pq)
	}

	for _, slug := range params.TaxonomySlugs {
		tq := bleve.NewTermQuery(slug)
		tq.SetField("taxonomy_slugs")
		queries = append(queries, tq)
	}

	if params.Language != "" {
		lq := bleve.NewTermQuery(params.Language)
		lq.SetField("language")
		queries = append(queries, lq)
	}

	if params.MinYear > 0 || params.MaxYear > 0 {
		lo := float64(params.MinYear)
		hi := float64(params.MaxYear)
		if params.MaxYear == 0 {
			hi = 3000 // Far future
		}
		inclusive := true
		rangeQuery := bleve.NewNumericRangeInclusiveQuery(&lo, &hi, &inclusive, &inclusive)
		rangeQuery.SetField("publish_year")
		queries = append(queries, rangeQuery)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "title", "name":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		req.SortBy([]string{"-_score"})
	}
}

func facetCounts(result *bleve.SearchResult, field string) []FacetCount {
	facet, ok := result.Facets[field]
	if !ok || facet.Terms == nil {
		return nil
	}
	var out []FacetCount
	for _, term := range facet.Terms.Terms() {
		out = append(out, FacetCount{Value: term.Term, Count: term.Count})
	}
	return out
}
