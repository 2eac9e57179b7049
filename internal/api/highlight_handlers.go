package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/narrateapp/narrate-server/internal/domain"
	"github.com/narrateapp/narrate-server/internal/highlight"
	"github.com/narrateapp/narrate-server/internal/service"
)

func (s *Server) registerHighlightRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights",
		Summary:     "Create highlight",
		Description: "Creates a highlight anchored to a block's plain text offsets",
		Tags:        []string{"Highlights"},
	}, s.handleCreateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "createHighlightFromSelection",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights/from-selection",
		Summary:     "Create highlight from selection",
		Description: "Captures a reading-pane selection and stores a highlight at the resolved offsets",
		Tags:        []string{"Highlights"},
	}, s.handleCreateHighlightFromSelection)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHighlight",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Get highlight",
		Description: "Returns a highlight by ID",
		Tags:        []string{"Highlights"},
	}, s.handleGetHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "recolorHighlight",
		Method:      http.MethodPatch,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Recolor highlight",
		Description: "Changes a highlight's color",
		Tags:        []string{"Highlights"},
	}, s.handleRecolorHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Delete highlight",
		Description: "Deletes a highlight and its note",
		Tags:        []string{"Highlights"},
	}, s.handleDeleteHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "setHighlightNote",
		Method:      http.MethodPut,
		Path:        "/api/v1/highlights/{id}/note",
		Summary:     "Set note",
		Description: "Attaches or replaces the note on a highlight",
		Tags:        []string{"Highlights"},
	}, s.handleSetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeHighlightNote",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}/note",
		Summary:     "Remove note",
		Description: "Detaches the note from a highlight",
		Tags:        []string{"Highlights"},
	}, s.handleRemoveNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/highlights",
		Summary:     "List book highlights",
		Description: "Returns all highlights of a book, optionally scoped to one block",
		Tags:        []string{"Highlights"},
	}, s.handleListBookHighlights)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBlockRuns",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookID}/blocks/{index}/runs",
		Summary:     "Get block runs",
		Description: "Returns a block's text split into contiguous runs with highlight attribution",
		Tags:        []string{"Highlights"},
	}, s.handleGetBlockRuns)
}

// === DTOs ===

// NoteResponse contains note data in API responses.
type NoteResponse struct {
	Content   string    `json:"content" doc:"Note text"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// HighlightResponse contains highlight data in API responses.
type HighlightResponse struct {
	ID          string        `json:"id" doc:"Highlight ID"`
	BookID      string        `json:"book_id" doc:"Owning book"`
	Text        string        `json:"text" doc:"Highlighted text"`
	StartOffset int           `json:"start_offset" doc:"Start offset in the block's plain text"`
	EndOffset   int           `json:"end_offset" doc:"End offset in the block's plain text"`
	BlockIndex  int           `json:"block_index" doc:"Owning block index"`
	Color       string        `json:"color" doc:"Highlight color"`
	Note        *NoteResponse `json:"note,omitempty" doc:"Attached note, if any"`
	CreatedAt   time.Time     `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time     `json:"updated_at" doc:"Last update time"`
}

// HighlightOutput wraps the highlight response for Huma.
type HighlightOutput struct {
	Body HighlightResponse
}

// ListHighlightsResponse contains a list of highlights.
type ListHighlightsResponse struct {
	Highlights []HighlightResponse `json:"highlights" doc:"List of highlights"`
}

// ListHighlightsOutput wraps the list highlights response for Huma.
type ListHighlightsOutput struct {
	Body ListHighlightsResponse
}

// CreateHighlightRequest is the request body for creating a highlight.
type CreateHighlightRequest struct {
	SessionID   string `json:"session_id" validate:"required" doc:"Session creating the highlight, used for rate limiting"`
	BookID      string `json:"book_id" validate:"required" doc:"Owning book"`
	Text        string `json:"text" validate:"required" doc:"Highlighted text"`
	StartOffset int    `json:"start_offset" validate:"min=0" doc:"Start offset in the block's plain text"`
	EndOffset   int    `json:"end_offset" doc:"End offset in the block's plain text"`
	BlockIndex  int    `json:"block_index" validate:"min=0" doc:"Owning block index"`
	Color       string `json:"color,omitempty" doc:"Highlight color, defaults to yellow"`
}

// CreateHighlightInput wraps the create highlight request for Huma.
type CreateHighlightInput struct {
	Body CreateHighlightRequest
}

// CreateFromSelectionRequest is the request body for highlighting a selection.
type CreateFromSelectionRequest struct {
	SessionID string           `json:"session_id" validate:"required" doc:"Session creating the highlight"`
	BookID    string           `json:"book_id" validate:"required" doc:"Owning book"`
	Selection SelectionRequest `json:"selection" doc:"Serialized client selection"`
	Color     string           `json:"color,omitempty" doc:"Highlight color, defaults to yellow"`
}

// CreateFromSelectionInput wraps the request for Huma.
type CreateFromSelectionInput struct {
	Body CreateFromSelectionRequest
}

// HighlightIDInput contains the highlight path parameter.
type HighlightIDInput struct {
	ID string `path:"id" doc:"Highlight ID"`
}

// RecolorRequest is the request body for changing a highlight's color.
type RecolorRequest struct {
	Color string `json:"color" validate:"required" doc:"New highlight color"`
}

// RecolorInput wraps the recolor request for Huma.
type RecolorInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body RecolorRequest
}

// NoteRequest is the request body for setting a note.
type NoteRequest struct {
	Content string `json:"content" validate:"required" doc:"Note text"`
}

// NoteInput wraps the note request for Huma.
type NoteInput struct {
	ID   string `path:"id" doc:"Highlight ID"`
	Body NoteRequest
}

// ListBookHighlightsInput contains parameters for listing a book's highlights.
type ListBookHighlightsInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Block  *int   `query:"block" doc:"Scope to one block index"`
}

// BlockRunsInput contains parameters for rendering a block's runs.
type BlockRunsInput struct {
	BookID string `path:"bookID" doc:"Book ID"`
	Index  int    `path:"index" doc:"Block index"`
}

// RunResponse is one contiguous piece of a block's text.
type RunResponse struct {
	Text      string             `json:"text" doc:"Run text"`
	Highlight *HighlightResponse `json:"highlight,omitempty" doc:"Covering highlight, absent for plain text"`
}

// BlockRunsResponse contains a block rendered as highlight runs.
type BlockRunsResponse struct {
	BookID     string        `json:"book_id" doc:"Book ID"`
	BlockIndex int           `json:"block_index" doc:"Block index"`
	Runs       []RunResponse `json:"runs" doc:"Contiguous runs covering the whole block text"`
}

// BlockRunsOutput wraps the block runs response for Huma.
type BlockRunsOutput struct {
	Body BlockRunsResponse
}

// highlightResponse converts a domain highlight to the API shape.
func highlightResponse(h *domain.Highlight) HighlightResponse {
	resp := HighlightResponse{
		ID:          h.ID,
		BookID:      h.BookID,
		Text:        h.Text,
		StartOffset: h.StartOffset,
		EndOffset:   h.EndOffset,
		BlockIndex:  h.BlockIndex(),
		Color:       string(h.Color),
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
	if h.Note != nil {
		resp.Note = &NoteResponse{
			Content:   h.Note.Content,
			CreatedAt: h.Note.CreatedAt,
			UpdatedAt: h.Note.UpdatedAt,
		}
	}
	return resp
}

func highlightResponses(highlights []*domain.Highlight) []HighlightResponse {
	resp := make([]HighlightResponse, len(highlights))
	for i, h := range highlights {
		resp[i] = highlightResponse(h)
	}
	return resp
}

// === Handlers ===

func (s *Server) handleCreateHighlight(ctx context.Context, input *CreateHighlightInput) (*HighlightOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	h, err := s.highlights.Create(ctx, service.CreateParams{
		SessionID:   input.Body.SessionID,
		BookID:      input.Body.BookID,
		Text:        input.Body.Text,
		StartOffset: input.Body.StartOffset,
		EndOffset:   input.Body.EndOffset,
		BlockIndex:  input.Body.BlockIndex,
		Color:       input.Body.Color,
	})
	if err != nil {
		return nil, err
	}

	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleCreateHighlightFromSelection(ctx context.Context, input *CreateFromSelectionInput) (*HighlightOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	h, err := s.highlights.CreateFromSelection(ctx, input.Body.SessionID, input.Body.BookID,
		selectionFromRequest(input.Body.Selection), input.Body.Color)
	if err != nil {
		return nil, err
	}

	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleGetHighlight(ctx context.Context, input *HighlightIDInput) (*HighlightOutput, error) {
	h, err := s.highlights.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleRecolorHighlight(ctx context.Context, input *RecolorInput) (*HighlightOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	h, err := s.highlights.SetColor(ctx, input.ID, input.Body.Color)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleDeleteHighlight(ctx context.Context, input *HighlightIDInput) (*MessageOutput, error) {
	if err := s.highlights.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "highlight deleted"}}, nil
}

func (s *Server) handleSetNote(ctx context.Context, input *NoteInput) (*HighlightOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	h, err := s.highlights.SetNote(ctx, input.ID, input.Body.Content)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleRemoveNote(ctx context.Context, input *HighlightIDInput) (*HighlightOutput, error) {
	h, err := s.highlights.RemoveNote(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleListBookHighlights(ctx context.Context, input *ListBookHighlightsInput) (*ListHighlightsOutput, error) {
	var (
		highlights []*domain.Highlight
		err        error
	)
	if input.Block != nil {
		highlights, err = s.highlights.ListForBlock(ctx, input.BookID, *input.Block)
	} else {
		highlights, err = s.highlights.ListForBook(ctx, input.BookID)
	}
	if err != nil {
		return nil, err
	}

	return &ListHighlightsOutput{Body: ListHighlightsResponse{Highlights: highlightResponses(highlights)}}, nil
}

func (s *Server) handleGetBlockRuns(ctx context.Context, input *BlockRunsInput) (*BlockRunsOutput, error) {
	runs, err := s.highlights.RenderBlock(ctx, input.BookID, input.Index)
	if err != nil {
		return nil, err
	}

	resp := make([]RunResponse, len(runs))
	for i, run := range runs {
		resp[i] = runResponse(run)
	}

	return &BlockRunsOutput{
		Body: BlockRunsResponse{
			BookID:     input.BookID,
			BlockIndex: input.Index,
			Runs:       resp,
		},
	}, nil
}

func runResponse(run highlight.Run) RunResponse {
	resp := RunResponse{Text: run.Text}
	if run.Highlight != nil {
		hr := highlightResponse(run.Highlight)
		resp.Highlight = &hr
	}
	return resp
}
