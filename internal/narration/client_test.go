package narration

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/narrateapp/narrate-server/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestGetNarration_Rendered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/prj-1/narration", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"audio_url":"https://cdn.example.com/prj-1.mp3","duration":421.5}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0, testLogger())
	defer c.Close()

	n, err := c.GetNarration(context.Background(), "prj-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/prj-1.mp3", n.AudioURL)
	assert.Equal(t, 421.5, n.Duration)
}

func TestGetNarration_NotRenderedYet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 0, testLogger())
	defer c.Close()

	_, err := c.GetNarration(context.Background(), "prj-pending")
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
}

func TestGetNarration_EmptyAudioURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"audio_url":"","duration":0}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0, testLogger())
	defer c.Close()

	_, err := c.GetNarration(context.Background(), "prj-1")
	assert.ErrorIs(t, err, apperrors.ErrNotReady)
}

func TestGetNarration_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, 0, testLogger())
	defer c.Close()

	_, err := c.GetNarration(context.Background(), "prj-1")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestGetNarration_EmptyProjectID(t *testing.T) {
	c := New("http://localhost:0", 0, testLogger())
	defer c.Close()

	_, err := c.GetNarration(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
