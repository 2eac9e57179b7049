package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/narrateapp/narrate-server/internal/domain"
	"github.com/narrateapp/narrate-server/internal/playback"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Create session",
		Description: "Creates a new playback session with no document loaded",
		Tags:        []string{"Sessions"},
	}, s.handleCreateSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns the current state of a playback session",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Delete session",
		Description: "Tears down a playback session and stops any speech",
		Tags:        []string{"Sessions"},
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "loadDocument",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/document",
		Summary:     "Load document",
		Description: "Fetches a book's text, segments it into blocks and prepares the session for playback",
		Tags:        []string{"Sessions"},
	}, s.handleLoadDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSessionBlocks",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/blocks",
		Summary:     "Get blocks",
		Description: "Returns the segmented blocks of the loaded document",
		Tags:        []string{"Sessions"},
	}, s.handleGetBlocks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSessionTimeMap",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/timemap",
		Summary:     "Get time map",
		Description: "Returns the estimated per-block narration timing of the loaded document",
		Tags:        []string{"Sessions"},
	}, s.handleGetTimeMap)
}

// === DTOs ===

// SessionResponse contains playback session state in API responses.
type SessionResponse struct {
	SessionID   string  `json:"session_id" doc:"Session ID"`
	State       string  `json:"state" doc:"Lifecycle state: idle, ready, playing, or paused"`
	BookID      string  `json:"book_id,omitempty" doc:"Loaded book ID"`
	AudioURL    string  `json:"audio_url,omitempty" doc:"Narration audio URL when rendered audio exists"`
	Duration    float64 `json:"duration" doc:"Total duration in seconds (real or estimated)"`
	ActiveBlock *int    `json:"active_block" doc:"Currently active block index, null when none"`
	Playing     bool    `json:"playing" doc:"Whether playback is running"`
	Backend     string  `json:"backend" doc:"Playback backend: file, synthesis, or none"`
	Position    float64 `json:"position" doc:"Playback position in seconds (file backend only)"`
	BlockCount  int     `json:"block_count" doc:"Number of blocks in the loaded document"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// sessionResponse converts a playback snapshot to the API shape.
func sessionResponse(snap playback.Snapshot) SessionResponse {
	return SessionResponse{
		SessionID:   snap.SessionID,
		State:       string(snap.State),
		BookID:      snap.BookID,
		AudioURL:    snap.AudioURL,
		Duration:    snap.Duration,
		ActiveBlock: snap.ActiveBlock,
		Playing:     snap.Playing,
		Backend:     string(snap.Backend),
		Position:    snap.Position,
		BlockCount:  snap.BlockCount,
	}
}

// SessionIDInput contains the session path parameter.
type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// LoadDocumentRequest is the request body for loading a document.
type LoadDocumentRequest struct {
	BookID string `json:"book_id" validate:"required" doc:"Book to load"`
}

// LoadDocumentInput wraps the load document request for Huma.
type LoadDocumentInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body LoadDocumentRequest
}

// BlockResponse contains one document block in API responses.
type BlockResponse struct {
	Index int    `json:"index" doc:"Stable block index"`
	Text  string `json:"text" doc:"Plain text content"`
	Kind  string `json:"kind" doc:"Block kind: heading1-3 or paragraph"`
}

// LoadDocumentResponse contains the prepared session and its blocks.
type LoadDocumentResponse struct {
	Session SessionResponse `json:"session" doc:"Session state after the load"`
	Blocks  []BlockResponse `json:"blocks" doc:"Segmented document blocks"`
}

// LoadDocumentOutput wraps the load document response for Huma.
type LoadDocumentOutput struct {
	Body LoadDocumentResponse
}

// BlocksResponse contains the blocks of a loaded document.
type BlocksResponse struct {
	BookID string          `json:"book_id" doc:"Loaded book ID"`
	Blocks []BlockResponse `json:"blocks" doc:"Segmented document blocks"`
}

// BlocksOutput wraps the blocks response for Huma.
type BlocksOutput struct {
	Body BlocksResponse
}

// TimeMapEntryResponse is one block's estimated narration window.
type TimeMapEntryResponse struct {
	BlockIndex int     `json:"block_index" doc:"Block the window belongs to"`
	Start      float64 `json:"start" doc:"Window start in seconds"`
	End        float64 `json:"end" doc:"Window end in seconds (exclusive)"`
}

// TimeMapResponse contains the full estimated time map of a session.
type TimeMapResponse struct {
	Duration float64                `json:"duration" doc:"Total estimated duration in seconds"`
	Entries  []TimeMapEntryResponse `json:"entries" doc:"Per-block windows ordered by block index"`
}

// TimeMapOutput wraps the time map response for Huma.
type TimeMapOutput struct {
	Body TimeMapResponse
}

func blockResponses(blocks []domain.Block) []BlockResponse {
	resp := make([]BlockResponse, len(blocks))
	for i, b := range blocks {
		resp[i] = BlockResponse{
			Index: b.Index,
			Text:  b.Text,
			Kind:  string(b.Kind),
		}
	}
	return resp
}

// === Handlers ===

func (s *Server) handleCreateSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	session, err := s.reader.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session.Snapshot())}, nil
}

func (s *Server) handleGetSession(_ context.Context, input *SessionIDInput) (*SessionOutput, error) {
	session, err := s.reader.GetSession(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session.Snapshot())}, nil
}

func (s *Server) handleDeleteSession(_ context.Context, input *SessionIDInput) (*MessageOutput, error) {
	if _, err := s.reader.GetSession(input.ID); err != nil {
		return nil, err
	}
	s.reader.RemoveSession(input.ID)
	s.highlights.ForgetSession(input.ID)
	return &MessageOutput{Body: MessageResponse{Message: "session removed"}}, nil
}

func (s *Server) handleLoadDocument(ctx context.Context, input *LoadDocumentInput) (*LoadDocumentOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	snap, blocks, err := s.reader.LoadDocument(ctx, input.ID, input.Body.BookID)
	if err != nil {
		return nil, err
	}

	return &LoadDocumentOutput{
		Body: LoadDocumentResponse{
			Session: sessionResponse(*snap),
			Blocks:  blockResponses(blocks),
		},
	}, nil
}

func (s *Server) handleGetBlocks(ctx context.Context, input *SessionIDInput) (*BlocksOutput, error) {
	doc, err := s.reader.GetDocument(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BlocksOutput{
		Body: BlocksResponse{
			BookID: doc.BookID,
			Blocks: blockResponses(doc.Blocks),
		},
	}, nil
}

func (s *Server) handleGetTimeMap(_ context.Context, input *SessionIDInput) (*TimeMapOutput, error) {
	session, err := s.reader.GetSession(input.ID)
	if err != nil {
		return nil, err
	}

	m := session.TimeMap()
	entries := make([]TimeMapEntryResponse, 0, len(m))
	for idx, e := range m {
		entries = append(entries, TimeMapEntryResponse{
			BlockIndex: idx,
			Start:      e.Start,
			End:        e.End,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BlockIndex < entries[j].BlockIndex })

	return &TimeMapOutput{
		Body: TimeMapResponse{
			Duration: m.Duration(),
			Entries:  entries,
		},
	}, nil
}
