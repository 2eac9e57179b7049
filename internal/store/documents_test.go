package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrateapp/narrate-server/internal/domain"
	"github.com/narrateapp/narrate-server/internal/store"
)

func TestPutGetDocument(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	doc := domain.NewDocument("bk-1", "# Title\n\nHello world.", []domain.Block{
		{Index: 0, Text: "Title", Kind: domain.KindHeading1},
		{Index: 1, Text: "Hello world.", Kind: domain.KindParagraph},
	})

	require.NoError(t, s.PutDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Raw, got.Raw)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "Hello world.", got.Blocks[1].Text)
	assert.True(t, got.Blocks[0].IsHeading())
}

func TestGetDocument_NotCached(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetDocument(context.Background(), "bk-missing")
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
}

func TestPutDocument_Overwrites(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, domain.NewDocument("bk-1", "old", []domain.Block{
		{Index: 0, Text: "old", Kind: domain.KindParagraph},
	})))
	require.NoError(t, s.PutDocument(ctx, domain.NewDocument("bk-1", "new", []domain.Block{
		{Index: 0, Text: "new", Kind: domain.KindParagraph},
		{Index: 1, Text: "more", Kind: domain.KindParagraph},
	})))

	got, err := s.GetDocument(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Raw)
	assert.Len(t, got.Blocks, 2)
}

func TestDeleteDocument(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, domain.NewDocument("bk-1", "text", nil)))
	require.NoError(t, s.DeleteDocument(ctx, "bk-1"))

	_, err := s.GetDocument(ctx, "bk-1")
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
}

func TestCheckpointRoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	c := domain.NewCheckpoint("bk-1", 7)
	require.NoError(t, s.UpsertCheckpoint(ctx, c))

	got, err := s.GetCheckpoint(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.BlockIndex)

	c.Advance(12)
	require.NoError(t, s.UpsertCheckpoint(ctx, c))

	got, err = s.GetCheckpoint(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, 12, got.BlockIndex)
}

func TestGetCheckpoint_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetCheckpoint(context.Background(), "bk-missing")
	assert.ErrorIs(t, err, store.ErrCheckpointNotFound)
}
