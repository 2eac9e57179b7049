// Package playback owns the reading session state machine: which block
// is being read, whether narration is playing, and which backend is the
// timing authority. All mutation goes through the named methods here -
// no other component writes the active block, the play flag, or the
// time map directly.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/narrateapp/narrate-server/internal/synth"
	"github.com/narrateapp/narrate-server/internal/timemap"
)

// fileProgressInterval is how often the file position clock is mapped
// back onto the time map while the file backend plays.
const fileProgressInterval = 100 * time.Millisecond

// State is the session lifecycle state.
type State string

// Session states. Loading a new document always passes through Idle so
// nothing from the previous document can leak into the next one.
const (
	StateIdle    State = "idle"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// noActiveBlock is the internal sentinel for "no block active".
const noActiveBlock = -1

// Session is the playback state for one open document. Safe for
// concurrent use; HTTP handlers and the synthesis goroutine both touch it.
type Session struct {
	ID string

	engine  synth.Engine
	emitter Emitter
	logger  *slog.Logger

	mu          sync.Mutex
	epoch       int64 // bumped by Reset; stale loads check it
	gen         int64 // bumped on every speech (re)start/stop
	state       State
	bookID      string
	audioURL    string
	duration    float64
	activeBlock int
	playing     bool
	timeMap     timemap.Map
	blockTexts  []string
	file        *fileBackend
}

// NewSession creates an idle session.
func NewSession(id string, engine synth.Engine, emitter Emitter, logger *slog.Logger) *Session {
	if engine == nil {
		engine = synth.NoopEngine{}
	}
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &Session{
		ID:          id,
		engine:      engine,
		emitter:     emitter,
		logger:      logger,
		state:       StateIdle,
		activeBlock: noActiveBlock,
	}
}

// Reset returns the session to Idle and invalidates every in-flight
// load and utterance tied to the previous document. Must be called
// before loading new document content: a stale response arriving after
// Reset is ignored by the epoch guard on the setters.
func (s *Session) Reset() int64 {
	s.mu.Lock()
	s.epoch++
	s.gen++
	epoch := s.epoch
	s.state = StateIdle
	s.bookID = ""
	s.audioURL = ""
	s.duration = 0
	s.activeBlock = noActiveBlock
	s.playing = false
	s.timeMap = nil
	s.blockTexts = nil
	s.file = nil
	s.mu.Unlock()

	s.engine.Cancel()
	s.emitter.Emit(StateChangedEvent{SessionID: s.ID, State: StateIdle, Playing: false})
	return epoch
}

// Epoch returns the current document epoch for guarding async loads.
func (s *Session) Epoch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// SetBookID records which book the epoch's load belongs to.
func (s *Session) SetBookID(epoch int64, bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.bookID = bookID
	return true
}

// SetParagraphTimeMap replaces the estimator output. Callable any
// number of times while the document loads; last write wins. Returns
// false when the epoch is stale (a superseded load).
func (s *Session) SetParagraphTimeMap(epoch int64, m timemap.Map) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.timeMap = m
	s.refreshStateLocked()
	return true
}

// SetBlockTexts replaces the block texts. Last write wins.
func (s *Session) SetBlockTexts(epoch int64, texts []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.blockTexts = texts
	s.refreshStateLocked()
	return true
}

// SetAudioURL switches backend authority. A non-empty URL means real
// timestamps exist and are preferred wherever position is read; empty
// means the estimated time map is the only timing source.
func (s *Session) SetAudioURL(epoch int64, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.audioURL = url
	if url == "" {
		s.file = nil
	} else {
		s.file = newFileBackend(url, s.duration)
	}
	return true
}

// SetDuration records the real narration duration in seconds.
func (s *Session) SetDuration(epoch int64, seconds float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.duration = seconds
	if s.file != nil {
		s.file.duration = seconds
	}
	return true
}

// refreshStateLocked promotes Idle to Ready once the load has delivered
// both the time map and the block texts.
func (s *Session) refreshStateLocked() {
	if s.state == StateIdle && s.timeMap != nil && s.blockTexts != nil {
		s.state = StateReady
	}
}

// SeekToBlock attempts to jump playback to the start of a block.
//
// Returns false exactly when no timing entry exists for the index (the
// time map is not built yet). It never fails any other way and never
// no-ops: callers fall back to SetActiveBlock + SetPlaying(true) to
// force-activate a block without timing data.
func (s *Session) SeekToBlock(index int) bool {
	s.mu.Lock()
	entry, ok := s.timeMap.Lookup(index)
	if !ok {
		s.mu.Unlock()
		return false
	}

	s.gen++
	gen := s.gen
	epoch := s.epoch
	s.activeBlock = index
	s.playing = true
	s.state = StatePlaying
	kind := s.backendKindLocked()
	file := s.file
	bookID := s.bookID
	s.mu.Unlock()

	s.emitter.Emit(BlockActivatedEvent{SessionID: s.ID, BookID: bookID, BlockIndex: index})
	s.emitter.Emit(StateChangedEvent{SessionID: s.ID, State: StatePlaying, Playing: true})

	// Whatever the target backend, a pending utterance must never keep
	// playing over the new position.
	s.engine.Cancel()

	switch kind {
	case BackendFile:
		file.seek(entry.Start)
		file.play()
		go s.trackFileProgress(epoch, gen)
	case BackendSynthesis:
		go s.speakFrom(index, epoch, gen)
	case BackendNone:
		// Degraded mode: activation still drives highlighting and
		// auto-scroll, there is just nothing to hear.
	}
	return true
}

// SetActiveBlock force-activates a block. Used as the seek fallback and
// by backend drivers reporting natural progress.
func (s *Session) SetActiveBlock(index int) {
	if index < 0 {
		return
	}
	s.mu.Lock()
	s.activeBlock = index
	bookID := s.bookID
	s.mu.Unlock()

	s.emitter.Emit(BlockActivatedEvent{SessionID: s.ID, BookID: bookID, BlockIndex: index})
}

// SetPlaying starts or stops narration without moving the active block.
func (s *Session) SetPlaying(playing bool) {
	s.mu.Lock()
	if s.playing == playing {
		s.mu.Unlock()
		return
	}

	s.gen++
	gen := s.gen
	epoch := s.epoch
	s.playing = playing

	start := s.activeBlock
	if start == noActiveBlock {
		start = 0
		// Only activate block 0 when there is a document to point at.
		if len(s.blockTexts) > 0 {
			s.activeBlock = 0
		}
	}

	var kind BackendKind
	var file *fileBackend
	if playing {
		s.state = StatePlaying
		kind = s.backendKindLocked()
		file = s.file
	} else {
		s.state = StatePaused
		file = s.file
	}
	state := s.state
	s.mu.Unlock()

	s.emitter.Emit(StateChangedEvent{SessionID: s.ID, State: state, Playing: playing})

	if !playing {
		s.engine.Cancel()
		if file != nil {
			file.pause()
		}
		return
	}

	switch kind {
	case BackendFile:
		file.play()
		go s.trackFileProgress(epoch, gen)
	case BackendSynthesis:
		s.engine.Cancel()
		go s.speakFrom(start, epoch, gen)
	case BackendNone:
	}
}

// trackFileProgress is the file backend's progress driver: it maps the
// position clock back through the time map and advances the active
// block as playback crosses window boundaries. It stops as soon as the
// session was reset, paused, or re-seeked (epoch/gen mismatch).
func (s *Session) trackFileProgress(epoch, gen int64) {
	ticker := time.NewTicker(fileProgressInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if s.epoch != epoch || s.gen != gen || !s.playing || s.file == nil {
			s.mu.Unlock()
			return
		}
		file := s.file
		m := s.timeMap
		current := s.activeBlock
		bookID := s.bookID
		s.mu.Unlock()

		index := m.BlockAt(file.Position())
		if index < 0 || index == current {
			continue
		}

		s.mu.Lock()
		if s.epoch != epoch || s.gen != gen || !s.playing {
			s.mu.Unlock()
			return
		}
		s.activeBlock = index
		s.mu.Unlock()

		s.emitter.Emit(BlockActivatedEvent{SessionID: s.ID, BookID: bookID, BlockIndex: index})
	}
}

// HandleFileError degrades the session after the audio file failed to
// load or play. The session keeps operating on the estimated time map
// plus the synthesizer; playback controls stay usable.
func (s *Session) HandleFileError(err error) {
	s.mu.Lock()
	s.logger.Warn("audio file backend failed, falling back to synthesis",
		"session_id", s.ID, "error", err)
	s.audioURL = ""
	s.file = nil
	resume := s.playing
	start := s.activeBlock
	if start == noActiveBlock {
		start = 0
	}
	s.gen++
	gen := s.gen
	epoch := s.epoch
	kind := s.backendKindLocked()
	s.mu.Unlock()

	if resume && kind == BackendSynthesis {
		s.engine.Cancel()
		go s.speakFrom(start, epoch, gen)
	}
}

// speakFrom narrates blocks sequentially starting at index, advancing
// the active block at each utterance boundary. It stops as soon as the
// session was reset, paused, or re-seeked (epoch/gen mismatch).
func (s *Session) speakFrom(index int, epoch, gen int64) {
	for i := index; ; i++ {
		s.mu.Lock()
		if s.epoch != epoch || s.gen != gen || !s.playing {
			s.mu.Unlock()
			return
		}
		if i >= len(s.blockTexts) {
			// Finished the document.
			s.playing = false
			s.state = StateReady
			s.mu.Unlock()
			s.emitter.Emit(StateChangedEvent{SessionID: s.ID, State: StateReady, Playing: false})
			return
		}
		text := s.blockTexts[i]
		bookID := s.bookID
		activate := i != s.activeBlock
		if activate {
			s.activeBlock = i
		}
		s.mu.Unlock()

		if activate {
			s.emitter.Emit(BlockActivatedEvent{SessionID: s.ID, BookID: bookID, BlockIndex: i})
		}

		if err := s.engine.Speak(context.Background(), text); err != nil {
			// A single failed utterance should not stall the document.
			s.logger.Warn("utterance failed, skipping block",
				"session_id", s.ID, "block", i, "error", err)
		}
	}
}

// backendKindLocked selects the timing authority: a real audio file when
// one exists, otherwise the synthesizer when the runtime has one,
// otherwise silent activation.
func (s *Session) backendKindLocked() BackendKind {
	if s.audioURL != "" && s.file != nil {
		return BackendFile
	}
	if s.engine.Available() {
		return BackendSynthesis
	}
	return BackendNone
}

// Snapshot is a point-in-time copy of the session state for the API.
type Snapshot struct {
	SessionID   string      `json:"session_id"`
	State       State       `json:"state"`
	BookID      string      `json:"book_id,omitempty"`
	AudioURL    string      `json:"audio_url,omitempty"`
	Duration    float64     `json:"duration"`
	ActiveBlock *int        `json:"active_block"`
	Playing     bool        `json:"playing"`
	Backend     BackendKind `json:"backend"`
	Position    float64     `json:"position"`
	BlockCount  int         `json:"block_count"`
}

// Snapshot returns the current session state. Duration falls back to
// the estimated total when no real audio duration is known; position is
// only meaningful on the file backend.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		SessionID:  s.ID,
		State:      s.state,
		BookID:     s.bookID,
		AudioURL:   s.audioURL,
		Duration:   s.duration,
		Playing:    s.playing,
		Backend:    s.backendKindLocked(),
		BlockCount: len(s.blockTexts),
	}
	if s.activeBlock != noActiveBlock {
		idx := s.activeBlock
		snap.ActiveBlock = &idx
	}
	if snap.Duration == 0 {
		snap.Duration = s.timeMap.Duration()
	}
	file := s.file
	s.mu.Unlock()

	if file != nil {
		snap.Position = file.Position()
	}
	return snap
}

// ActiveBlock returns the active block index, or ok=false when none.
func (s *Session) ActiveBlock() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeBlock == noActiveBlock {
		return 0, false
	}
	return s.activeBlock, true
}

// IsPlaying reports whether narration is running.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// CurrentState returns the lifecycle state.
func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BlockText returns the text of one block.
func (s *Session) BlockText(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.blockTexts) {
		return "", false
	}
	return s.blockTexts[index], true
}

// TimeMap returns the current time map.
func (s *Session) TimeMap() timemap.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeMap
}

// BookID returns the loaded book, empty when idle.
func (s *Session) BookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookID
}
