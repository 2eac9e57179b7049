package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/narrateapp/narrate-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/search",
		Summary:     "Search highlights",
		Description: "Full-text search over highlight text and notes",
		Tags:        []string{"Search"},
	}, s.handleSearchHighlights)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexHighlights",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/reindex",
		Summary:     "Reindex highlights",
		Description: "Rebuilds the search index from the stored highlights of the given books",
		Tags:        []string{"Search"},
	}, s.handleReindexHighlights)
}

// === DTOs ===

// SearchHighlightsInput contains search query parameters.
type SearchHighlightsInput struct {
	Query  string   `query:"q" doc:"Search query"`
	BookID string   `query:"book_id" doc:"Scope to one book"`
	Colors []string `query:"colors" doc:"Filter by highlight colors"`
	Limit  int      `query:"limit" doc:"Maximum hits to return, defaults to 20"`
	Offset int      `query:"offset" doc:"Hits to skip for pagination"`
}

// SearchHitResponse is a single matching highlight.
type SearchHitResponse struct {
	ID         string            `json:"id" doc:"Highlight ID"`
	Score      float64           `json:"score" doc:"Relevance score"`
	BookID     string            `json:"book_id" doc:"Owning book"`
	Text       string            `json:"text" doc:"Highlighted text"`
	Note       string            `json:"note,omitempty" doc:"Note text"`
	Color      string            `json:"color" doc:"Highlight color"`
	BlockIndex int               `json:"block_index" doc:"Owning block index"`
	Fragments  map[string]string `json:"fragments,omitempty" doc:"Match highlighting fragments per field"`
}

// SearchHighlightsResponse contains search results.
type SearchHighlightsResponse struct {
	Query  string              `json:"query" doc:"Echoed search query"`
	Total  uint64              `json:"total" doc:"Total matching highlights"`
	TookMs int64               `json:"took_ms" doc:"Query duration in milliseconds"`
	Hits   []SearchHitResponse `json:"hits" doc:"Matching highlights ordered by relevance"`
}

// SearchHighlightsOutput wraps the search response for Huma.
type SearchHighlightsOutput struct {
	Body SearchHighlightsResponse
}

// ReindexRequest is the request body for rebuilding the search index.
type ReindexRequest struct {
	BookIDs []string `json:"book_ids" validate:"required,min=1" doc:"Books whose highlights to reindex"`
}

// ReindexInput wraps the reindex request for Huma.
type ReindexInput struct {
	Body ReindexRequest
}

// === Handlers ===

func (s *Server) handleSearchHighlights(ctx context.Context, input *SearchHighlightsInput) (*SearchHighlightsOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.BookID = input.BookID
	params.Colors = input.Colors
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Offset > 0 {
		params.Offset = input.Offset
	}

	result, err := s.highlights.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHitResponse, len(result.Hits))
	for i, hit := range result.Hits {
		hits[i] = SearchHitResponse{
			ID:         hit.ID,
			Score:      hit.Score,
			BookID:     hit.BookID,
			Text:       hit.Text,
			Note:       hit.Note,
			Color:      hit.Color,
			BlockIndex: hit.BlockIndex,
			Fragments:  hit.Fragments,
		}
	}

	return &SearchHighlightsOutput{
		Body: SearchHighlightsResponse{
			Query:  result.Query,
			Total:  result.Total,
			TookMs: result.TookMs,
			Hits:   hits,
		},
	}, nil
}

func (s *Server) handleReindexHighlights(ctx context.Context, input *ReindexInput) (*MessageOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	if err := s.highlights.Reindex(ctx, input.Body.BookIDs); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "reindex complete"}}, nil
}
