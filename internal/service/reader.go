// Package service provides the business logic layer for reading sessions,
// document loading, and highlight management.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/narrateapp/narrate-server/internal/content"
	"github.com/narrateapp/narrate-server/internal/domain"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/narration"
	"github.com/narrateapp/narrate-server/internal/playback"
	"github.com/narrateapp/narrate-server/internal/segment"
	"github.com/narrateapp/narrate-server/internal/selection"
	"github.com/narrateapp/narrate-server/internal/sse"
	"github.com/narrateapp/narrate-server/internal/store"
	"github.com/narrateapp/narrate-server/internal/timemap"
)

// ReaderService orchestrates sessions: loading documents into them,
// driving playback, and saving reading progress.
type ReaderService struct {
	registry  *playback.Registry
	store     *store.Store
	content   *content.Client
	narration *narration.Client
	estimator *timemap.Estimator
	emitter   store.EventEmitter
	logger    *slog.Logger
}

// NewReaderService creates a new reader service.
func NewReaderService(
	registry *playback.Registry,
	st *store.Store,
	contentClient *content.Client,
	narrationClient *narration.Client,
	estimator *timemap.Estimator,
	emitter store.EventEmitter,
	logger *slog.Logger,
) *ReaderService {
	return &ReaderService{
		registry:  registry,
		store:     st,
		content:   contentClient,
		narration: narrationClient,
		estimator: estimator,
		emitter:   emitter,
		logger:    logger,
	}
}

// CreateSession starts a new idle playback session.
func (s *ReaderService) CreateSession(ctx context.Context) (*playback.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.registry.Create()
}

// GetSession retrieves a session by ID.
func (s *ReaderService) GetSession(sessionID string) (*playback.Session, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, apperrors.NotFoundf("session %s not found", sessionID)
	}
	return session, nil
}

// RemoveSession resets and forgets a session.
func (s *ReaderService) RemoveSession(sessionID string) {
	s.registry.Remove(sessionID)
}

// LoadDocument loads a book into a session: fetches the text, segments it,
// builds the estimated time map, and tries to attach rendered narration.
//
// The session is reset first, so a load that gets superseded by a newer one
// can never write into the session - every setter is guarded by the epoch
// taken at reset time.
func (s *ReaderService) LoadDocument(ctx context.Context, sessionID, bookID string) (*playback.Snapshot, []domain.Block, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	epoch := session.Reset()

	doc, err := s.fetchDocument(ctx, bookID)
	if err != nil {
		return nil, nil, err
	}

	texts := domain.Texts(doc.Blocks)
	if !session.SetBookID(epoch, bookID) ||
		!session.SetBlockTexts(epoch, texts) ||
		!session.SetParagraphTimeMap(epoch, s.estimator.Generate(texts)) {
		// A newer load reset the session while this one was in flight.
		return nil, nil, apperrors.Conflict("document load superseded")
	}

	// Rendered narration is optional: not-ready is the normal state for a
	// fresh project and playback falls back to synthesis.
	if n, err := s.narration.GetNarration(ctx, bookID); err != nil {
		if apperrors.Is(err, apperrors.ErrNotReady) {
			s.logger.Info("narration not rendered, using synthesis",
				"session_id", sessionID, "book_id", bookID)
		} else {
			s.logger.Warn("narration lookup failed, using synthesis",
				"session_id", sessionID, "book_id", bookID, "error", err)
		}
	} else {
		session.SetDuration(epoch, n.Duration)
		session.SetAudioURL(epoch, n.AudioURL)
	}

	// Resume from the saved checkpoint when one exists for this book.
	if ckpt, err := s.store.GetCheckpoint(ctx, bookID); err == nil {
		if ckpt.BlockIndex >= 0 && ckpt.BlockIndex < len(doc.Blocks) {
			session.SetActiveBlock(ckpt.BlockIndex)
		}
	}

	snap := session.Snapshot()
	s.emitter.Emit(sse.NewDocumentLoadedEvent(sessionID, bookID, len(doc.Blocks), string(snap.Backend)))

	s.logger.Info("document loaded",
		"session_id", sessionID,
		"book_id", bookID,
		"blocks", len(doc.Blocks),
		"backend", snap.Backend,
	)

	return &snap, doc.Blocks, nil
}

// fetchDocument gets book text from the content service and caches the
// segmented result. When the service is unreachable, a previously cached
// copy keeps the reader working offline.
func (s *ReaderService) fetchDocument(ctx context.Context, bookID string) (*domain.Document, error) {
	raw, err := s.content.GetContent(ctx, bookID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUpstream) {
			if cached, cacheErr := s.store.GetDocument(ctx, bookID); cacheErr == nil {
				s.logger.Warn("content service unavailable, serving cached document",
					"book_id", bookID, "error", err)
				return cached, nil
			}
		}
		return nil, err
	}

	doc := domain.NewDocument(bookID, raw, segment.Segment(raw))
	if err := s.store.PutDocument(ctx, doc); err != nil {
		// Cache failures are not load failures.
		s.logger.Warn("failed to cache document", "book_id", bookID, "error", err)
	}
	return doc, nil
}

// GetDocument returns the cached segmented document for a loaded session.
func (s *ReaderService) GetDocument(ctx context.Context, sessionID string) (*domain.Document, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	bookID := session.BookID()
	if bookID == "" {
		return nil, apperrors.Conflict("no document loaded in session")
	}
	return s.store.GetDocument(ctx, bookID)
}

// Seek jumps playback to the start of a block. When the time map has no
// entry yet (still building, or an out-of-range index), the block is
// force-activated and playback started without timing data instead of
// failing the request. Returns whether the seek used timing data.
func (s *ReaderService) Seek(ctx context.Context, sessionID string, blockIndex int) (bool, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return false, err
	}
	if blockIndex < 0 {
		return false, apperrors.Validation("block index must not be negative")
	}

	seeked := session.SeekToBlock(blockIndex)
	if !seeked {
		session.SetActiveBlock(blockIndex)
		session.SetPlaying(true)
	}

	s.saveCheckpoint(ctx, session)
	return seeked, nil
}

// Play starts narration from the active block (or the top of the document).
func (s *ReaderService) Play(_ context.Context, sessionID string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.SetPlaying(true)
	return nil
}

// Pause stops narration without moving the active block.
func (s *ReaderService) Pause(ctx context.Context, sessionID string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.SetPlaying(false)
	s.saveCheckpoint(ctx, session)
	return nil
}

// ReportFileError degrades a session to synthesis after the client's audio
// element failed to load or play the narration file.
func (s *ReaderService) ReportFileError(sessionID, message string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.HandleFileError(fmt.Errorf("client audio error: %s", message))
	return nil
}

// CaptureSelection maps a serialized reading-pane selection to a block
// index and rune offsets. Returns nil when the selection is empty or lies
// outside any block.
func (s *ReaderService) CaptureSelection(sessionID string, sel selection.Selection) (*selection.Captured, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}
	return selection.Capture(sel), nil
}

// saveCheckpoint persists the active block so the book reopens there.
func (s *ReaderService) saveCheckpoint(ctx context.Context, session *playback.Session) {
	bookID := session.BookID()
	index, ok := session.ActiveBlock()
	if bookID == "" || !ok {
		return
	}

	if err := s.store.UpsertCheckpoint(ctx, domain.NewCheckpoint(bookID, index)); err != nil {
		s.logger.Warn("failed to save checkpoint",
			"book_id", bookID, "block", index, "error", err)
	}
}
