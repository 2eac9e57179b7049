package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/narrateapp/narrate-server/internal/domain"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/highlight"
	"github.com/narrateapp/narrate-server/internal/id"
	"github.com/narrateapp/narrate-server/internal/ratelimit"
	"github.com/narrateapp/narrate-server/internal/search"
	"github.com/narrateapp/narrate-server/internal/selection"
	"github.com/narrateapp/narrate-server/internal/store"
)

// Highlight creation rate limit per session: bursts of 10, refilling at
// 2 per second. Generous for a human, tight enough to stop a looping client.
const (
	createRPS   = 2.0
	createBurst = 10
)

// HighlightService manages highlight lifecycle: creation from captured
// selections, notes, recoloring, deletion, search, and rendering block
// text into highlighted runs.
type HighlightService struct {
	store   *store.Store
	search  *search.SearchIndex
	limiter *ratelimit.Keyed
	logger  *slog.Logger
}

// NewHighlightService creates a new highlight service.
func NewHighlightService(st *store.Store, idx *search.SearchIndex, logger *slog.Logger) *HighlightService {
	return &HighlightService{
		store:   st,
		search:  idx,
		limiter: ratelimit.New(createRPS, createBurst),
		logger:  logger,
	}
}

// Close releases resources held by the service.
func (s *HighlightService) Close() {
	s.limiter.Stop()
}

// ForgetSession drops the per-session rate limit bucket. Called when a
// playback session is removed so abandoned sessions do not accumulate
// limiter state.
func (s *HighlightService) ForgetSession(sessionID string) {
	s.limiter.Forget(sessionID)
}

// CreateParams are the inputs for creating a highlight.
type CreateParams struct {
	SessionID   string
	BookID      string
	Text        string
	StartOffset int
	EndOffset   int
	BlockIndex  int
	Color       string
}

// Create validates and stores a new highlight.
func (s *HighlightService) Create(ctx context.Context, p CreateParams) (*domain.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(p.SessionID) {
		return nil, apperrors.RateLimited("too many highlights, slow down")
	}

	if p.Text == "" {
		return nil, apperrors.Validation("highlight text is required")
	}
	if p.StartOffset < 0 || p.EndOffset <= p.StartOffset {
		return nil, apperrors.Validation("end offset must be greater than start offset")
	}
	if p.BlockIndex < 0 {
		return nil, apperrors.Validation("block index must not be negative")
	}

	color := domain.HighlightColor(p.Color)
	if p.Color == "" {
		color = domain.ColorYellow
	} else if !domain.ValidColor(color) {
		return nil, apperrors.Validationf("unknown highlight color %q", p.Color)
	}

	highlightID, err := id.Generate("hl")
	if err != nil {
		return nil, fmt.Errorf("generate highlight ID: %w", err)
	}

	h := domain.NewHighlight(highlightID, p.BookID, p.Text, p.StartOffset, p.EndOffset, p.BlockIndex, color)
	if err := s.store.CreateHighlight(ctx, h); err != nil {
		return nil, fmt.Errorf("create highlight: %w", err)
	}

	s.logger.Info("highlight created",
		"highlight_id", highlightID,
		"book_id", p.BookID,
		"block", p.BlockIndex,
		"color", color,
	)

	return h, nil
}

// CreateFromSelection captures a reading-pane selection and stores a
// highlight at the resolved block and offsets.
func (s *HighlightService) CreateFromSelection(ctx context.Context, sessionID, bookID string, sel selection.Selection, color string) (*domain.Highlight, error) {
	captured := selection.Capture(sel)
	if captured == nil {
		return nil, apperrors.Validation("selection is empty or outside the reading pane")
	}

	return s.Create(ctx, CreateParams{
		SessionID:   sessionID,
		BookID:      bookID,
		Text:        captured.Text,
		StartOffset: captured.StartOffset,
		EndOffset:   captured.EndOffset,
		BlockIndex:  captured.BlockIndex,
		Color:       color,
	})
}

// Get retrieves a highlight by ID.
func (s *HighlightService) Get(ctx context.Context, highlightID string) (*domain.Highlight, error) {
	return s.store.GetHighlight(ctx, highlightID)
}

// ListForBook returns all highlights for a book.
func (s *HighlightService) ListForBook(ctx context.Context, bookID string) ([]*domain.Highlight, error) {
	return s.store.GetHighlightsForBook(ctx, bookID)
}

// ListForBlock returns the highlights belonging to one block of a book.
func (s *HighlightService) ListForBlock(ctx context.Context, bookID string, blockIndex int) ([]*domain.Highlight, error) {
	return s.store.GetHighlightsForBlock(ctx, bookID, blockIndex)
}

// SetNote attaches or replaces the note on a highlight.
func (s *HighlightService) SetNote(ctx context.Context, highlightID, content string) (*domain.Highlight, error) {
	if content == "" {
		return nil, apperrors.Validation("note content is required")
	}

	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}

	h.SetNote(content)
	if err := s.store.UpdateHighlight(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// RemoveNote deletes the note from a highlight, keeping the highlight.
func (s *HighlightService) RemoveNote(ctx context.Context, highlightID string) (*domain.Highlight, error) {
	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}

	h.RemoveNote()
	if err := s.store.UpdateHighlight(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// SetColor recolors a highlight.
func (s *HighlightService) SetColor(ctx context.Context, highlightID, color string) (*domain.Highlight, error) {
	c := domain.HighlightColor(color)
	if !domain.ValidColor(c) {
		return nil, apperrors.Validationf("unknown highlight color %q", color)
	}

	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}

	h.SetColor(c)
	if err := s.store.UpdateHighlight(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Delete removes a highlight.
func (s *HighlightService) Delete(ctx context.Context, highlightID string) error {
	return s.store.DeleteHighlight(ctx, highlightID)
}

// Search runs a full-text query over highlight text and notes.
func (s *HighlightService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if params.Limit <= 0 {
		params.Limit = search.DefaultSearchParams().Limit
	}
	return s.search.Search(ctx, params)
}

// RenderBlock splits a block's text into runs for display: plain stretches
// interleaved with highlighted ones. Highlights whose stored offsets no
// longer match are re-anchored by text search; unresolvable ones drop out
// silently rather than breaking the pane.
func (s *HighlightService) RenderBlock(ctx context.Context, bookID string, blockIndex int) ([]highlight.Run, error) {
	doc, err := s.store.GetDocument(ctx, bookID)
	if err != nil {
		return nil, err
	}

	block := doc.Block(blockIndex)
	if block == nil {
		return nil, apperrors.NotFoundf("block %d out of range", blockIndex)
	}

	highlights, err := s.store.GetHighlightsForBlock(ctx, bookID, blockIndex)
	if err != nil {
		return nil, err
	}

	return highlight.Resolve(block.Text, highlights), nil
}

// Reindex rebuilds the search index from the store. Used at startup when
// the mapping version changed and the index came up empty.
func (s *HighlightService) Reindex(ctx context.Context, bookIDs []string) error {
	var all []*domain.Highlight
	for _, bookID := range bookIDs {
		hs, err := s.store.GetHighlightsForBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("load highlights for %s: %w", bookID, err)
		}
		all = append(all, hs...)
	}

	if err := s.search.IndexHighlights(all); err != nil {
		return fmt.Errorf("index highlights: %w", err)
	}

	s.logger.Info("search reindex complete", "highlights", len(all), "books", len(bookIDs))
	return nil
}
