// Package timemap estimates per-block narration timing for documents
// that have no pre-rendered audio. The map is derived, not authoritative:
// it exists so progress display and block seeking work when the playback
// backend cannot report real timestamps.
package timemap

import "strings"

// Default estimation constants. Fifteen characters per second is in the
// range of a measured audiobook narration pace; the floor keeps headings
// and one-word blocks at a perceptible span so seeking never divides by
// a zero-width entry.
const (
	DefaultCharsPerSecond = 15.0
	DefaultFloorSeconds   = 1.5
)

// Entry is the estimated [Start, End) narration window of one block,
// in seconds.
type Entry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Map holds contiguous entries keyed by block index.
// Invariant: entries[0].Start == 0 and entries[i].End == entries[i+1].Start.
type Map map[int]Entry

// Estimator converts block texts into a time map at a fixed reading rate.
type Estimator struct {
	charsPerSecond float64
	floorSeconds   float64
}

// NewEstimator creates an estimator. Non-positive parameters fall back
// to the defaults.
func NewEstimator(charsPerSecond, floorSeconds float64) *Estimator {
	if charsPerSecond <= 0 {
		charsPerSecond = DefaultCharsPerSecond
	}
	if floorSeconds <= 0 {
		floorSeconds = DefaultFloorSeconds
	}
	return &Estimator{
		charsPerSecond: charsPerSecond,
		floorSeconds:   floorSeconds,
	}
}

// Generate produces the full time map for the given block texts.
// An empty input yields an empty map. The map is always recomputed
// whole when the document changes, never patched in place.
func (e *Estimator) Generate(texts []string) Map {
	m := make(Map, len(texts))

	offset := 0.0
	for i, text := range texts {
		d := e.estimate(text)
		m[i] = Entry{Start: offset, End: offset + d}
		offset += d
	}
	return m
}

// estimate returns the reading duration for one block, never below the
// floor. Rune count, not byte count: multibyte text should not read
// faster than ASCII.
func (e *Estimator) estimate(text string) float64 {
	n := len([]rune(strings.TrimSpace(text)))
	d := float64(n) / e.charsPerSecond
	if d < e.floorSeconds {
		return e.floorSeconds
	}
	return d
}

// Duration returns the estimated total document duration: the End of the
// last entry, or 0 for an empty map.
func (m Map) Duration() float64 {
	var total float64
	for _, entry := range m {
		if entry.End > total {
			total = entry.End
		}
	}
	return total
}

// Lookup returns the entry for a block index.
func (m Map) Lookup(index int) (Entry, bool) {
	entry, ok := m[index]
	return entry, ok
}

// BlockAt returns the index of the block whose window contains the given
// position in seconds, or -1 when the map is empty. Positions past the
// end clamp to the last block.
func (m Map) BlockAt(position float64) int {
	if len(m) == 0 {
		return -1
	}

	last := 0
	for i := range len(m) {
		entry := m[i]
		if position >= entry.Start && position < entry.End {
			return i
		}
		last = i
	}
	if position < 0 {
		return 0
	}
	return last
}
