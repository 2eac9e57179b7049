package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/narrateapp/narrate-server/internal/domain"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/sse"
)

const checkpointPrefix = "ckpt:"

// Sentinel errors for checkpoint operations.
var (
	ErrCheckpointNotFound = apperrors.NotFound("checkpoint not found")
)

// UpsertCheckpoint creates or updates reading progress for a book.
func (s *Store) UpsertCheckpoint(ctx context.Context, c *domain.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(checkpointPrefix, c.BookID)
	defer releaseKey(key)

	if err := s.set(key, c); err != nil {
		return err
	}

	s.eventEmitter.Emit(sse.NewCheckpointUpdatedEvent(c))
	return nil
}

// GetCheckpoint retrieves reading progress for a book.
func (s *Store) GetCheckpoint(ctx context.Context, bookID string) (*domain.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(checkpointPrefix, bookID)
	defer releaseKey(key)

	var c domain.Checkpoint
	err := s.get(key, &c)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCheckpoint removes reading progress for a book.
func (s *Store) DeleteCheckpoint(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(checkpointPrefix, bookID)
	defer releaseKey(key)

	return s.delete(key)
}
