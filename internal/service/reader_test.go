package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrateapp/narrate-server/internal/content"
	apperrors "github.com/narrateapp/narrate-server/internal/errors"
	"github.com/narrateapp/narrate-server/internal/narration"
	"github.com/narrateapp/narrate-server/internal/playback"
	"github.com/narrateapp/narrate-server/internal/store"
	"github.com/narrateapp/narrate-server/internal/timemap"
)

const testBookText = "# Chapter One\n\nHello world.\n\nA considerably longer paragraph that keeps going for a while."

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

type readerFixture struct {
	svc        *ReaderService
	store      *store.Store
	contentSrv *httptest.Server
	cleanup    func()
}

// newReaderFixture wires a ReaderService against httptest upstreams.
// The narration service answers 404 (not rendered) unless narrationJSON is set.
func newReaderFixture(t *testing.T, narrationJSON string) *readerFixture {
	t.Helper()

	contentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(testBookText))
	}))

	narrationSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if narrationJSON == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(narrationJSON))
	}))

	tmpDir, err := os.MkdirTemp("", "reader-service-test-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "test.db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)

	logger := testLogger()
	contentClient := content.New(contentSrv.URL, 0, logger)
	narrationClient := narration.New(narrationSrv.URL, 0, logger)
	registry := playback.NewRegistry(nil, nil, logger)

	svc := NewReaderService(
		registry,
		st,
		contentClient,
		narrationClient,
		timemap.NewEstimator(0, 0),
		store.NewNoopEmitter(),
		logger,
	)

	cleanup := func() {
		contentClient.Close()
		narrationClient.Close()
		st.Close()
		os.RemoveAll(tmpDir)
		contentSrv.Close()
		narrationSrv.Close()
	}

	return &readerFixture{svc: svc, store: st, contentSrv: contentSrv, cleanup: cleanup}
}

func TestLoadDocument(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	snap, blocks, err := f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)

	assert.Equal(t, playback.StateReady, snap.State)
	assert.Equal(t, "bk-1", snap.BookID)
	require.Len(t, blocks, 3)
	assert.Equal(t, "Chapter One", blocks[0].Text)
	assert.True(t, blocks[0].IsHeading())
	assert.Equal(t, "Hello world.", blocks[1].Text)

	// Document got cached for offline reads
	doc, err := f.store.GetDocument(ctx, "bk-1")
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 3)
}

func TestLoadDocument_SessionNotFound(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	_, _, err := f.svc.LoadDocument(context.Background(), "ssn-missing", "bk-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoadDocument_NarrationRendered(t *testing.T) {
	f := newReaderFixture(t, `{"audio_url":"https://cdn.example.com/bk-1.mp3","duration":300}`)
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	snap, _, err := f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)

	assert.Equal(t, playback.BackendFile, snap.Backend)
	assert.Equal(t, "https://cdn.example.com/bk-1.mp3", snap.AudioURL)
	assert.Equal(t, 300.0, snap.Duration)
}

func TestLoadDocument_ServesCacheWhenContentDown(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, _, err = f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)

	// Content service goes away; the cached copy keeps the reader working.
	f.contentSrv.Close()

	snap, blocks, err := f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, playback.StateReady, snap.State)
	assert.Len(t, blocks, 3)
}

func TestSeek_SavesCheckpoint(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, _, err = f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)

	seeked, err := f.svc.Seek(ctx, session.ID, 2)
	require.NoError(t, err)
	assert.True(t, seeked)

	index, ok := session.ActiveBlock()
	require.True(t, ok)
	assert.Equal(t, 2, index)

	ckpt, err := f.store.GetCheckpoint(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, 2, ckpt.BlockIndex)
}

func TestSeek_FallsBackWithoutTimingEntry(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, _, err = f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)

	// Index beyond the document: no time map entry, but the block still
	// activates and playback starts.
	seeked, err := f.svc.Seek(ctx, session.ID, 99)
	require.NoError(t, err)
	assert.False(t, seeked)

	index, ok := session.ActiveBlock()
	require.True(t, ok)
	assert.Equal(t, 99, index)
	assert.True(t, session.IsPlaying())
}

func TestSeek_NegativeIndex(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.Seek(ctx, session.ID, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLoadDocument_ResumesFromCheckpoint(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, _, err = f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)
	_, err = f.svc.Seek(ctx, session.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.svc.Pause(ctx, session.ID))

	// Reopen the book in a fresh session
	session2, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)
	_, _, err = f.svc.LoadDocument(ctx, session2.ID, "bk-1")
	require.NoError(t, err)

	index, ok := session2.ActiveBlock()
	require.True(t, ok)
	assert.Equal(t, 2, index)
}

func TestPlayPause(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	_, _, err = f.svc.LoadDocument(ctx, session.ID, "bk-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Play(ctx, session.ID))
	assert.True(t, session.IsPlaying())
	assert.Equal(t, playback.StatePlaying, session.CurrentState())

	require.NoError(t, f.svc.Pause(ctx, session.ID))
	assert.False(t, session.IsPlaying())
	assert.Equal(t, playback.StatePaused, session.CurrentState())
}

func TestRemoveSession(t *testing.T) {
	f := newReaderFixture(t, "")
	defer f.cleanup()

	ctx := context.Background()
	session, err := f.svc.CreateSession(ctx)
	require.NoError(t, err)

	f.svc.RemoveSession(session.ID)
	_, err = f.svc.GetSession(session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
