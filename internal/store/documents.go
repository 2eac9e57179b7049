package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/narrateapp/narrate-server/internal/domain"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
)

const documentPrefix = "doc:"

// Sentinel errors for document operations.
var (
	ErrDocumentNotFound = apperrors.NotFound("document not cached")
)

// PutDocument caches a segmented document by book ID.
// Loading a book overwrites any previous cache entry for it.
func (s *Store) PutDocument(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(documentPrefix, doc.BookID)
	defer releaseKey(key)

	return s.set(key, doc)
}

// GetDocument retrieves a cached document by book ID.
func (s *Store) GetDocument(ctx context.Context, bookID string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(documentPrefix, bookID)
	defer releaseKey(key)

	var doc domain.Document
	err := s.get(key, &doc)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument drops a cached document.
func (s *Store) DeleteDocument(ctx context.Context, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(documentPrefix, bookID)
	defer releaseKey(key)

	return s.delete(key)
}
