package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a highlight search query.
type SearchParams struct {
	Query  string // User's search query
	BookID string // Scope to one book (empty = all books)

	// Filters
	Colors []string // Filter by highlight colors (empty = all)

	// Pagination
	Limit  int
	Offset int

	// Options
	Highlight bool // Include match highlighting fragments
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:     20,
		Offset:    0,
		Highlight: true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit represents a single matching highlight.
type SearchHit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	BookID     string            `json:"book_id"`
	Text       string            `json:"text"`
	Note       string            `json:"note,omitempty"`
	Color      string            `json:"color"`
	BlockIndex int               `json:"block_index"`
	Fragments  map[string]string `json:"fragments,omitempty"`
}

// Search executes a search query over highlights.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("text")
		searchRequest.Highlight.AddField("note")
	}

	// Request stored fields
	searchRequest.Fields = []string{
		"id", "book_id", "text", "note", "color", "block_index",
	}

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
		searchHit := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		// Extract stored fields
		if b, ok := hit.Fields["book_id"].(string); ok {
			searchHit.BookID = b
		}
		if t, ok := hit.Fields["text"].(string); ok {
			searchHit.Text = t
		}
		if n, ok := hit.Fields["note"].(string); ok {
			searchHit.Note = n
		}
		if c, ok := hit.Fields["color"].(string); ok {
			searchHit.Color = c
		}
		if bi, ok := hit.Fields["block_index"].(float64); ok {
			searchHit.BlockIndex = int(bi)
		}

		// Extract highlighting fragments
		if len(hit.Fragments) > 0 {
			searchHit.Fragments = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Fragments[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query across the highlighted passage and any note.
	// The passage gets the higher boost: a reader searching "whale" wants
	// the sentence they marked, not every note that mentions whales.
	if params.Query != "" {
		textQueries := []query.Query{}

		textMatch := bleve.NewMatchQuery(params.Query)
		textMatch.SetField("text")
		textMatch.SetBoost(3.0)
		textQueries = append(textQueries, textMatch)

		noteMatch := bleve.NewMatchQuery(params.Query)
		noteMatch.SetField("note")
		noteMatch.SetBoost(1.5)
		textQueries = append(textQueries, noteMatch)

		// Fuzzy matching for typo tolerance on the passage
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("text")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("text")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Book filter (exact match)
	if params.BookID != "" {
		bq := bleve.NewTermQuery(params.BookID)
		bq.SetField("book_id")
		queries = append(queries, bq)
	}

	// Color filter (exact match, OR across colors)
	if len(params.Colors) > 0 {
		colorQueries := make([]query.Query, len(params.Colors))
		for i, c := range params.Colors {
			cq := bleve.NewTermQuery(c)
			cq.SetField("color")
			colorQueries[i] = cq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(colorQueries...))
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
