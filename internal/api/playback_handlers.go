package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/selection"
)

func (s *Server) registerPlaybackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "seek",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/seek",
		Summary:     "Seek to block",
		Description: "Moves playback to the start of a block",
		Tags:        []string{"Playback"},
	}, s.handleSeek)

	huma.Register(s.api, huma.Operation{
		OperationID: "play",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/play",
		Summary:     "Start playback",
		Description: "Starts or resumes playback on the session's backend",
		Tags:        []string{"Playback"},
	}, s.handlePlay)

	huma.Register(s.api, huma.Operation{
		OperationID: "pause",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/pause",
		Summary:     "Pause playback",
		Description: "Pauses playback and saves a resume checkpoint",
		Tags:        []string{"Playback"},
	}, s.handlePause)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportAudioError",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/audio-error",
		Summary:     "Report audio error",
		Description: "Reports a client-side audio failure so the session can fall back to synthesis",
		Tags:        []string{"Playback"},
	}, s.handleReportAudioError)

	huma.Register(s.api, huma.Operation{
		OperationID: "captureSelection",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/selection",
		Summary:     "Capture selection",
		Description: "Resolves a client text selection to block-relative plain text offsets",
		Tags:        []string{"Playback"},
	}, s.handleCaptureSelection)
}

// === DTOs ===

// SeekRequest is the request body for seeking.
type SeekRequest struct {
	BlockIndex int `json:"block_index" validate:"min=0" doc:"Target block index"`
}

// SeekInput wraps the seek request for Huma.
type SeekInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body SeekRequest
}

// SeekResponse reports the seek outcome alongside the session state.
type SeekResponse struct {
	Seeked  bool            `json:"seeked" doc:"False when no timing entry existed and the block was force-activated instead"`
	Session SessionResponse `json:"session" doc:"Session state after the seek"`
}

// SeekOutput wraps the seek response for Huma.
type SeekOutput struct {
	Body SeekResponse
}

// AudioErrorRequest is the request body for reporting an audio failure.
type AudioErrorRequest struct {
	Message string `json:"message" doc:"Client-reported failure description"`
}

// AudioErrorInput wraps the audio error request for Huma.
type AudioErrorInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body AudioErrorRequest
}

// SelectionRequest is the serialized client selection.
type SelectionRequest struct {
	HTML        string `json:"html" validate:"required" doc:"Reading pane markup"`
	Text        string `json:"text" doc:"Selected text as reported by the client"`
	StartPath   []int  `json:"start_path" doc:"Child-index path to the start node"`
	StartOffset int    `json:"start_offset" doc:"Character offset inside the start node"`
	EndPath     []int  `json:"end_path" doc:"Child-index path to the end node"`
	EndOffset   int    `json:"end_offset" doc:"Character offset inside the end node"`
}

// SelectionInput wraps the selection request for Huma.
type SelectionInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body SelectionRequest
}

// CapturedSelectionResponse is a selection resolved to one block.
type CapturedSelectionResponse struct {
	Text        string `json:"text" doc:"Trimmed selected text"`
	BlockIndex  int    `json:"block_index" doc:"Block the selection lies in"`
	StartOffset int    `json:"start_offset" doc:"Start offset in the block's plain text"`
	EndOffset   int    `json:"end_offset" doc:"End offset in the block's plain text"`
}

// CapturedSelectionOutput wraps the captured selection for Huma.
type CapturedSelectionOutput struct {
	Body CapturedSelectionResponse
}

func selectionFromRequest(req SelectionRequest) selection.Selection {
	return selection.Selection{
		HTML:        req.HTML,
		Text:        req.Text,
		StartPath:   req.StartPath,
		StartOffset: req.StartOffset,
		EndPath:     req.EndPath,
		EndOffset:   req.EndOffset,
	}
}

// === Handlers ===

func (s *Server) handleSeek(ctx context.Context, input *SeekInput) (*SeekOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	seeked, err := s.reader.Seek(ctx, input.ID, input.Body.BlockIndex)
	if err != nil {
		return nil, err
	}

	session, err := s.reader.GetSession(input.ID)
	if err != nil {
		return nil, err
	}

	return &SeekOutput{
		Body: SeekResponse{
			Seeked:  seeked,
			Session: sessionResponse(session.Snapshot()),
		},
	}, nil
}

func (s *Server) handlePlay(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	if err := s.reader.Play(ctx, input.ID); err != nil {
		return nil, err
	}

	session, err := s.reader.GetSession(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session.Snapshot())}, nil
}

func (s *Server) handlePause(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	if err := s.reader.Pause(ctx, input.ID); err != nil {
		return nil, err
	}

	session, err := s.reader.GetSession(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session.Snapshot())}, nil
}

func (s *Server) handleReportAudioError(_ context.Context, input *AudioErrorInput) (*SessionOutput, error) {
	if err := s.reader.ReportFileError(input.ID, input.Body.Message); err != nil {
		return nil, err
	}

	session, err := s.reader.GetSession(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session.Snapshot())}, nil
}

func (s *Server) handleCaptureSelection(_ context.Context, input *SelectionInput) (*CapturedSelectionOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	captured, err := s.reader.CaptureSelection(input.ID, selectionFromRequest(input.Body))
	if err != nil {
		return nil, err
	}
	if captured == nil {
		return nil, domainerrors.Validation("selection is empty or outside a block")
	}

	return &CapturedSelectionOutput{
		Body: CapturedSelectionResponse{
			Text:        captured.Text,
			BlockIndex:  captured.BlockIndex,
			StartOffset: captured.StartOffset,
			EndOffset:   captured.EndOffset,
		},
	}, nil
}
