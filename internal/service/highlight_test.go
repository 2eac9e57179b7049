package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrateapp/narrate-server/internal/domain"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/search"
	"github.com/narrateapp/narrate-server/internal/segment"
	"github.com/narrateapp/narrate-server/internal/selection"
	"github.com/narrateapp/narrate-server/internal/store"
)

func newHighlightService(t *testing.T) (*HighlightService, *store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "highlight-service-test-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "test.db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)

	idx, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(tmpDir, "search")})
	require.NoError(t, err)
	st.SetSearchIndexer(idx)

	svc := NewHighlightService(st, idx, testLogger())

	cleanup := func() {
		svc.Close()
		idx.Close()
		st.Close()
		os.RemoveAll(tmpDir)
	}
	return svc, st, cleanup
}

func validCreateParams() CreateParams {
	return CreateParams{
		SessionID:   "ssn-1",
		BookID:      "bk-1",
		Text:        "world",
		StartOffset: 6,
		EndOffset:   11,
		BlockIndex:  1,
		Color:       "yellow",
	}
}

func TestCreateHighlightLifecycle(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()
	h, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, domain.ColorYellow, h.Color)
	assert.Equal(t, 1, h.BlockIndex())

	got, err := svc.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "world", got.Text)

	list, err := svc.ListForBook(ctx, "bk-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, h.ID))
	_, err = svc.Get(ctx, h.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"empty text", func(p *CreateParams) { p.Text = "" }},
		{"inverted offsets", func(p *CreateParams) { p.EndOffset = p.StartOffset }},
		{"negative start", func(p *CreateParams) { p.StartOffset = -1 }},
		{"negative block", func(p *CreateParams) { p.BlockIndex = -1 }},
		{"bad color", func(p *CreateParams) { p.Color = "mauve" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validCreateParams()
			tt.mutate(&p)
			_, err := svc.Create(ctx, p)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestCreate_DefaultsToYellow(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	p := validCreateParams()
	p.Color = ""
	h, err := svc.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, domain.ColorYellow, h.Color)
}

func TestCreate_RateLimited(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()
	var rateErr error
	for i := 0; i < createBurst+2; i++ {
		_, err := svc.Create(ctx, validCreateParams())
		if err != nil {
			rateErr = err
			break
		}
	}
	assert.ErrorIs(t, rateErr, apperrors.ErrRateLimit)

	// Other sessions are unaffected
	p := validCreateParams()
	p.SessionID = "ssn-other"
	_, err := svc.Create(ctx, p)
	assert.NoError(t, err)
}

func TestForgetSessionResetsLimiter(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	// Exhaust the session's bucket.
	ctx := context.Background()
	var rateErr error
	for i := 0; i < createBurst+2; i++ {
		if _, err := svc.Create(ctx, validCreateParams()); err != nil {
			rateErr = err
			break
		}
	}
	require.ErrorIs(t, rateErr, apperrors.ErrRateLimit)

	// Session teardown drops the bucket; a reused ID starts fresh.
	svc.ForgetSession(validCreateParams().SessionID)

	_, err := svc.Create(ctx, validCreateParams())
	assert.NoError(t, err)
}

func TestCreateFromSelection(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	sel := selection.Selection{
		HTML:        `<p data-block-index="1">Hello world.</p>`,
		Text:        "world",
		StartPath:   []int{0, 0},
		StartOffset: 6,
		EndPath:     []int{0, 0},
		EndOffset:   11,
	}

	h, err := svc.CreateFromSelection(context.Background(), "ssn-1", "bk-1", sel, "blue")
	require.NoError(t, err)
	assert.Equal(t, "world", h.Text)
	assert.Equal(t, 1, h.BlockIndex())
	assert.Equal(t, 6, h.StartOffset)
	assert.Equal(t, 11, h.EndOffset)
	assert.Equal(t, domain.ColorBlue, h.Color)
}

func TestCreateFromSelection_Empty(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	sel := selection.Selection{
		HTML: `<p data-block-index="0">Hello</p>`,
		Text: "   ",
	}

	_, err := svc.CreateFromSelection(context.Background(), "ssn-1", "bk-1", sel, "yellow")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestNotes(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()
	h, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)

	h, err = svc.SetNote(ctx, h.ID, "check this later")
	require.NoError(t, err)
	require.NotNil(t, h.Note)
	assert.Equal(t, "check this later", h.Note.Content)

	h, err = svc.RemoveNote(ctx, h.ID)
	require.NoError(t, err)
	assert.Nil(t, h.Note)
}

func TestSetColor(t *testing.T) {
	svc, _, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()
	h, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)

	h, err = svc.SetColor(ctx, h.ID, "green")
	require.NoError(t, err)
	assert.Equal(t, domain.ColorGreen, h.Color)

	_, err = svc.SetColor(ctx, h.ID, "puce")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRenderBlock(t *testing.T) {
	svc, st, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()
	raw := "Hello world.\n\nAnother paragraph."
	doc := domain.NewDocument("bk-1", raw, segment.Segment(raw))
	require.NoError(t, st.PutDocument(ctx, doc))

	_, err := svc.Create(ctx, validCreateParams())
	require.NoError(t, err)

	// validCreateParams targets block 1, but the highlight text "world"
	// lives in block 0 of this document - create one that matches block 0.
	p := validCreateParams()
	p.BlockIndex = 0
	_, err = svc.Create(ctx, p)
	require.NoError(t, err)

	runs, err := svc.RenderBlock(ctx, "bk-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "Hello ", runs[0].Text)
	assert.Nil(t, runs[0].Highlight)
	assert.Equal(t, "world", runs[1].Text)
	assert.NotNil(t, runs[1].Highlight)
	assert.Equal(t, ".", runs[2].Text)
}

func TestRenderBlock_OutOfRange(t *testing.T) {
	svc, st, cleanup := newHighlightService(t)
	defer cleanup()

	ctx := context.Background()
	raw := "Only one block."
	require.NoError(t, st.PutDocument(ctx, domain.NewDocument("bk-1", raw, segment.Segment(raw))))

	_, err := svc.RenderBlock(ctx, "bk-1", 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
