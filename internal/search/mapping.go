package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for highlight documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on highlight text with English stemming
//  2. Notes searchable at lower weight than the passage itself
//  3. Exact keyword matching for book and color filters
//  4. Numeric block index so hits can be scrolled to without a store read
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	// Use English analyzer as default for text fields
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Highlight text - primary search target
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("text", textFieldMapping)

	// Note content - searchable alongside the passage
	noteFieldMapping := bleve.NewTextFieldMapping()
	noteFieldMapping.Analyzer = en.AnalyzerName
	noteFieldMapping.Store = true
	noteFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("note", noteFieldMapping)

	// --- Keyword fields (exact match) ---

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Book ID - for scoping search to one book
	bookFieldMapping := bleve.NewTextFieldMapping()
	bookFieldMapping.Analyzer = keyword.Name
	bookFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("book_id", bookFieldMapping)

	// Color - for filtering by highlight color
	colorFieldMapping := bleve.NewTextFieldMapping()
	colorFieldMapping.Analyzer = keyword.Name
	colorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("color", colorFieldMapping)

	// --- Numeric fields ---

	// Block index - returned with hits so the client can scroll to the match
	blockIndexFieldMapping := bleve.NewNumericFieldMapping()
	blockIndexFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("block_index", blockIndexFieldMapping)

	// Timestamp - for sorting by recency
	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
