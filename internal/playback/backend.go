package playback

import (
	"sync"
	"time"
)

// BackendKind identifies which timing authority drives a session.
type BackendKind string

// Backend kinds. File playback has real, seekable timestamps; synthesis
// has no addressable timeline and is driven block by block; none means
// block activation happens with no audible output.
const (
	BackendFile      BackendKind = "file"
	BackendSynthesis BackendKind = "synthesis"
	BackendNone      BackendKind = "none"
)

// fileBackend models the client's audio element for a pre-rendered
// narration file: a position clock that advances in wall time while
// playing. Seeking moves the clock to a block's estimated start.
type fileBackend struct {
	url      string
	duration float64

	mu       sync.Mutex
	position float64
	playing  bool
	anchor   time.Time
}

func newFileBackend(url string, duration float64) *fileBackend {
	return &fileBackend{url: url, duration: duration}
}

// seek moves the clock to the given position in seconds.
func (f *fileBackend) seek(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if f.duration > 0 && seconds > f.duration {
		seconds = f.duration
	}
	f.position = seconds
	f.anchor = time.Now()
}

func (f *fileBackend) play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playing {
		return
	}
	f.playing = true
	f.anchor = time.Now()
}

func (f *fileBackend) pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.playing {
		return
	}
	f.position = f.positionLocked()
	f.playing = false
}

// Position returns the current playback position in seconds.
func (f *fileBackend) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positionLocked()
}

func (f *fileBackend) positionLocked() float64 {
	pos := f.position
	if f.playing {
		pos += time.Since(f.anchor).Seconds()
	}
	if f.duration > 0 && pos > f.duration {
		pos = f.duration
	}
	return pos
}
