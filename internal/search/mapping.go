package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
//
//  1. Titles and authors get English stemming and term vectors for highlighting
//  2. Taxonomy names are searchable text; their slugs are exact keywords
//  3. Identifiers, language and formats are exact keywords
//  4. Publisher, year and creation time are numeric for filtering and sorting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Description - searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// Author names are not stemmed
	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = simple.Name
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	taxonomyFieldMapping := bleve.NewTextFieldMapping()
	taxonomyFieldMapping.Analyzer = en.AnalyzerName
	taxonomyFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("taxonomy", taxonomyFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	for _, field := range []string{"id", "isbn", "asin", "language", "formats"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// Keyword analyzer keeps compound slugs intact (e.g., "slow-burn")
	slugsFieldMapping := bleve.NewTextFieldMapping()
	slugsFieldMapping.Analyzer = keyword.Name
	slugsFieldMapping.Store = true
	slugsFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("taxonomy_slugs", slugsFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	for _, field := range []string{"publisher_id", "publish_year", "created_at"} {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
