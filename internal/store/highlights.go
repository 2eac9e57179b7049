package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/narrateapp/narrate-server/internal/domain"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/sse"
)

const (
	highlightPrefix       = "hl:"
	highlightByBookPrefix = "hl:idx:book:"
)

// Sentinel errors for highlight operations.
var (
	ErrHighlightNotFound = apperrors.NotFound("highlight not found")
)

// CreateHighlight stores a highlight and its book index atomically.
func (s *Store) CreateHighlight(ctx context.Context, h *domain.Highlight) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal highlight: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		// Primary key
		if err := txn.Set([]byte(highlightPrefix+h.ID), data); err != nil {
			return fmt.Errorf("set highlight: %w", err)
		}

		// Index: by book
		bookIdx := highlightByBookPrefix + h.BookID + ":" + h.ID
		if err := txn.Set([]byte(bookIdx), []byte(h.ID)); err != nil {
			return fmt.Errorf("set book index: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.eventEmitter.Emit(sse.NewHighlightCreatedEvent(h))

	// Index for search asynchronously
	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.IndexHighlight(context.Background(), h); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to index highlight for search", "highlight_id", h.ID, "error", err)
				}
			}
		}()
	}

	return nil
}

// GetHighlight retrieves a highlight by ID.
func (s *Store) GetHighlight(ctx context.Context, id string) (*domain.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(highlightPrefix, id)
	defer releaseKey(key)

	var h domain.Highlight
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrHighlightNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &h)
		})
	})

	if err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHighlight persists changes to an existing highlight.
// The book index is stable (highlights never move between books) so only the
// primary record is rewritten.
func (s *Store) UpdateHighlight(ctx context.Context, h *domain.Highlight) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exists, err := s.exists([]byte(highlightPrefix + h.ID))
	if err != nil {
		return err
	}
	if !exists {
		return ErrHighlightNotFound
	}

	if err := s.set([]byte(highlightPrefix+h.ID), h); err != nil {
		return err
	}

	s.eventEmitter.Emit(sse.NewHighlightUpdatedEvent(h))

	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.IndexHighlight(context.Background(), h); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to reindex highlight for search", "highlight_id", h.ID, "error", err)
				}
			}
		}()
	}

	return nil
}

// DeleteHighlight removes a highlight and its book index atomically.
func (s *Store) DeleteHighlight(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Fetch first so the index entry and the deletion event carry the book ID.
	h, err := s.GetHighlight(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(highlightPrefix + id)); err != nil {
			return fmt.Errorf("delete highlight: %w", err)
		}
		if err := txn.Delete([]byte(highlightByBookPrefix + h.BookID + ":" + id)); err != nil {
			return fmt.Errorf("delete book index: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.eventEmitter.Emit(sse.NewHighlightDeletedEvent(id, h.BookID))

	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteHighlight(context.Background(), id); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to remove highlight from search", "highlight_id", id, "error", err)
				}
			}
		}()
	}

	return nil
}

// GetHighlightsForBook retrieves all highlights for a book.
func (s *Store) GetHighlightsForBook(ctx context.Context, bookID string) ([]*domain.Highlight, error) {
	return s.getHighlightsByPrefix(ctx, highlightByBookPrefix+bookID+":")
}

// GetHighlightsForBlock retrieves highlights for a book that belong to one block.
// Highlights whose chapter field does not parse as a block index are skipped,
// matching the tolerant read path used when rendering runs.
func (s *Store) GetHighlightsForBlock(ctx context.Context, bookID string, blockIndex int) ([]*domain.Highlight, error) {
	all, err := s.GetHighlightsForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Highlight, 0, len(all))
	for _, h := range all {
		if h.BelongsToBlock(blockIndex) {
			matched = append(matched, h)
		}
	}
	return matched, nil
}

// getHighlightsByPrefix retrieves highlights matching an index prefix.
// Uses a single transaction to collect IDs and fetch all highlights (no N+1).
func (s *Store) getHighlightsByPrefix(ctx context.Context, prefix string) ([]*domain.Highlight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var highlights []*domain.Highlight

	err := s.db.View(func(txn *badger.Txn) error {
		// First pass: collect highlight IDs from index
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}

		// Second pass: batch fetch all highlights in same transaction
		highlights = make([]*domain.Highlight, 0, len(ids))
		for _, id := range ids {
			item, err := txn.Get([]byte(highlightPrefix + id))
			if err != nil {
				continue // Skip missing highlights
			}

			var h domain.Highlight
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &h)
			}); err != nil {
				continue // Skip corrupt highlights
			}
			highlights = append(highlights, &h)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return highlights, nil
}
