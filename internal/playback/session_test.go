package playback

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrateapp/narrate-server/internal/timemap"
)

// recordingEmitter captures emitted events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) activations() []BlockActivatedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BlockActivatedEvent
	for _, e := range r.events {
		if a, ok := e.(BlockActivatedEvent); ok {
			out = append(out, a)
		}
	}
	return out
}

// blockingEngine is a synth engine whose utterances run until cancelled.
type blockingEngine struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
	release chan struct{}
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{release: make(chan struct{}, 64)}
}

func (e *blockingEngine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	e.spoken = append(e.spoken, text)
	e.mu.Unlock()
	select {
	case <-e.release:
		return nil
	case <-ctx.Done():
		return nil
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func (e *blockingEngine) Cancel() {
	e.mu.Lock()
	e.cancels++
	e.mu.Unlock()
}

func (e *blockingEngine) Available() bool { return true }
func (e *blockingEngine) Name() string    { return "test" }

func (e *blockingEngine) spokenTexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.spoken...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadDocument(s *Session, texts []string) int64 {
	epoch := s.Reset()
	s.SetBookID(epoch, "bk-1")
	est := timemap.NewEstimator(15, 1.5)
	s.SetParagraphTimeMap(epoch, est.Generate(texts))
	s.SetBlockTexts(epoch, texts)
	return epoch
}

func TestSession_LoadReachesReady(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())
	assert.Equal(t, StateIdle, s.CurrentState())

	loadDocument(s, []string{"one", "two"})

	assert.Equal(t, StateReady, s.CurrentState())
	_, active := s.ActiveBlock()
	assert.False(t, active)
	assert.False(t, s.IsPlaying())
}

func TestSession_SeekToBlock(t *testing.T) {
	emitter := &recordingEmitter{}
	s := NewSession("ssn-1", nil, emitter, testLogger())
	loadDocument(s, []string{"one", "two", "three"})

	ok := s.SeekToBlock(2)
	require.True(t, ok)

	idx, active := s.ActiveBlock()
	require.True(t, active)
	assert.Equal(t, 2, idx)
	assert.True(t, s.IsPlaying())
	assert.Equal(t, StatePlaying, s.CurrentState())

	acts := emitter.activations()
	require.NotEmpty(t, acts)
	assert.Equal(t, 2, acts[len(acts)-1].BlockIndex)
}

func TestSession_SeekToBlock_NoEntryReturnsFalse(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())
	loadDocument(s, []string{"one", "two"})

	// No entry for index 5: contract is false, never panic, never no-op.
	assert.False(t, s.SeekToBlock(5))

	// The caller's fallback path must still land on the block.
	s.SetActiveBlock(5)
	s.SetPlaying(true)

	idx, active := s.ActiveBlock()
	require.True(t, active)
	assert.Equal(t, 5, idx)
	assert.True(t, s.IsPlaying())
}

func TestSession_SeekBeforeMapBuilt(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())

	// Time map not yet built at all.
	assert.False(t, s.SeekToBlock(0))
}

func TestSession_ResetClearsEverything(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())
	epoch := loadDocument(s, []string{"a", "b", "c", "d"})
	s.SetAudioURL(epoch, "http://example.com/narration.mp3")
	s.SetDuration(epoch, 120)
	require.True(t, s.SeekToBlock(3))

	s.Reset()

	assert.Equal(t, StateIdle, s.CurrentState())
	_, active := s.ActiveBlock()
	assert.False(t, active)
	assert.False(t, s.IsPlaying())

	snap := s.Snapshot()
	assert.Empty(t, snap.AudioURL)
	assert.Zero(t, snap.Duration)
	assert.Zero(t, snap.BlockCount)
}

func TestSession_DocumentSwitchDoesNotLeakState(t *testing.T) {
	// Load document A, play to block 3, then switch to document B with
	// two blocks: nothing from A may survive the switch.
	s := NewSession("ssn-1", nil, nil, testLogger())
	loadDocument(s, []string{"a0", "a1", "a2", "a3"})
	require.True(t, s.SeekToBlock(3))

	loadDocument(s, []string{"b0", "b1"})

	_, active := s.ActiveBlock()
	assert.False(t, active, "activeBlock must be cleared by the switch")
	assert.False(t, s.IsPlaying(), "isPlaying must be cleared by the switch")
	assert.Equal(t, StateReady, s.CurrentState())
}

func TestSession_StaleLoadIgnoredAfterReset(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())
	staleEpoch := s.Reset()

	// A new load supersedes the old one before its results arrive.
	fresh := loadDocument(s, []string{"fresh"})

	est := timemap.NewEstimator(15, 1.5)
	assert.False(t, s.SetParagraphTimeMap(staleEpoch, est.Generate([]string{"stale", "stale"})))
	assert.False(t, s.SetBlockTexts(staleEpoch, []string{"stale", "stale"}))
	assert.False(t, s.SetAudioURL(staleEpoch, "http://example.com/old.mp3"))

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.BlockCount, "stale texts must not resurrect")
	assert.Empty(t, snap.AudioURL)
	assert.Equal(t, fresh, s.Epoch())
}

func TestSession_FileBackendPreferred(t *testing.T) {
	engine := newBlockingEngine()
	s := NewSession("ssn-1", engine, nil, testLogger())
	epoch := loadDocument(s, []string{"one", "two"})
	s.SetAudioURL(epoch, "http://example.com/narration.mp3")
	s.SetDuration(epoch, 60)

	snap := s.Snapshot()
	assert.Equal(t, BackendFile, snap.Backend)

	require.True(t, s.SeekToBlock(1))
	// File backend drives playback; the synthesizer must stay quiet.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, engine.spokenTexts())
	assert.Greater(t, s.Snapshot().Position, 0.0)
}

func TestSession_FileBackendAdvancesActiveBlock(t *testing.T) {
	// The position clock must carry the active block forward through the
	// time map windows while the file backend plays.
	emitter := &recordingEmitter{}
	s := NewSession("ssn-1", newBlockingEngine(), emitter, testLogger())

	texts := []string{"a", "b", "c"}
	epoch := s.Reset()
	s.SetBookID(epoch, "bk-1")
	est := timemap.NewEstimator(15, 0.2)
	s.SetParagraphTimeMap(epoch, est.Generate(texts))
	s.SetBlockTexts(epoch, texts)
	s.SetAudioURL(epoch, "http://example.com/narration.mp3")
	s.SetDuration(epoch, 0.6)

	require.True(t, s.SeekToBlock(0))

	require.Eventually(t, func() bool {
		idx, active := s.ActiveBlock()
		return active && idx >= 1
	}, 2*time.Second, 20*time.Millisecond, "active block never advanced past 0")

	var announced bool
	for _, a := range emitter.activations() {
		if a.BlockIndex >= 1 {
			announced = true
		}
	}
	assert.True(t, announced, "natural progress must emit block activations")
}

func TestSession_PauseStopsFileProgress(t *testing.T) {
	s := NewSession("ssn-1", newBlockingEngine(), nil, testLogger())

	texts := []string{"a", "b", "c"}
	epoch := s.Reset()
	s.SetBookID(epoch, "bk-1")
	est := timemap.NewEstimator(15, 0.2)
	s.SetParagraphTimeMap(epoch, est.Generate(texts))
	s.SetBlockTexts(epoch, texts)
	s.SetAudioURL(epoch, "http://example.com/narration.mp3")
	s.SetDuration(epoch, 0.6)

	require.True(t, s.SeekToBlock(0))
	s.SetPlaying(false)

	idx, active := s.ActiveBlock()
	require.True(t, active)
	time.Sleep(400 * time.Millisecond)

	after, _ := s.ActiveBlock()
	assert.Equal(t, idx, after, "paused session must not advance")
}

func TestSession_PlayWithoutDocumentKeepsNoActiveBlock(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())

	s.SetPlaying(true)

	_, active := s.ActiveBlock()
	assert.False(t, active, "no document means no block to activate")
}

func TestSession_SynthesisBackendSpeaks(t *testing.T) {
	engine := newBlockingEngine()
	emitter := &recordingEmitter{}
	s := NewSession("ssn-1", engine, emitter, testLogger())
	loadDocument(s, []string{"first block", "second block"})

	require.True(t, s.SeekToBlock(0))

	// Release both utterances and let the document finish.
	engine.release <- struct{}{}
	engine.release <- struct{}{}

	require.Eventually(t, func() bool {
		return s.CurrentState() == StateReady
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"first block", "second block"}, engine.spokenTexts())

	acts := emitter.activations()
	require.NotEmpty(t, acts)
	assert.Equal(t, 1, acts[len(acts)-1].BlockIndex)
	assert.False(t, s.IsPlaying())
}

func TestSession_PauseCancelsUtterance(t *testing.T) {
	engine := newBlockingEngine()
	s := NewSession("ssn-1", engine, nil, testLogger())
	loadDocument(s, []string{"long block"})

	require.True(t, s.SeekToBlock(0))
	require.Eventually(t, func() bool {
		return len(engine.spokenTexts()) == 1
	}, time.Second, 5*time.Millisecond)

	s.SetPlaying(false)

	assert.Equal(t, StatePaused, s.CurrentState())
	engine.mu.Lock()
	cancels := engine.cancels
	engine.mu.Unlock()
	assert.Greater(t, cancels, 0)
}

func TestSession_FileErrorDegradesToSynthesis(t *testing.T) {
	engine := newBlockingEngine()
	s := NewSession("ssn-1", engine, nil, testLogger())
	epoch := loadDocument(s, []string{"one", "two"})
	s.SetAudioURL(epoch, "http://example.com/broken.mp3")
	s.SetDuration(epoch, 60)
	require.True(t, s.SeekToBlock(0))

	s.HandleFileError(assert.AnError)

	snap := s.Snapshot()
	assert.Empty(t, snap.AudioURL)
	assert.Equal(t, BackendSynthesis, snap.Backend)
	assert.True(t, s.IsPlaying(), "controls stay usable after degradation")

	require.Eventually(t, func() bool {
		return len(engine.spokenTexts()) > 0
	}, time.Second, 5*time.Millisecond)
}

func TestSession_NoEngineStillActivates(t *testing.T) {
	// Silent runtime: block activation still works for highlighting and
	// auto-scroll, with no audible output.
	s := NewSession("ssn-1", nil, nil, testLogger()) // NoopEngine
	loadDocument(s, []string{"one"})

	assert.Equal(t, BackendNone, s.Snapshot().Backend)
	require.True(t, s.SeekToBlock(0))

	idx, active := s.ActiveBlock()
	require.True(t, active)
	assert.Equal(t, 0, idx)
	assert.True(t, s.IsPlaying())
}

func TestSession_SnapshotFallsBackToEstimatedDuration(t *testing.T) {
	s := NewSession("ssn-1", nil, nil, testLogger())
	loadDocument(s, []string{"some text to estimate"})

	snap := s.Snapshot()
	assert.Greater(t, snap.Duration, 0.0, "estimated duration reported when no audio duration is known")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil, nil, testLogger())

	s, err := r.Create()
	require.NoError(t, err)
	require.NotNil(t, s)

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Count())

	r.Remove(s.ID)
	_, ok = r.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}
