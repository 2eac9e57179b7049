// Package highlight resolves user highlight ranges against live block
// text and produces the render-ready run sequence.
package highlight

import (
	"sort"

	"github.com/narrateapp/narrate-server/internal/domain"
)

// Run is one contiguous span of block text. Highlight is nil for plain
// spans. Concatenating the Text of all runs always reproduces the block
// text exactly.
type Run struct {
	Text      string            `json:"text"`
	Highlight *domain.Highlight `json:"highlight,omitempty"`
}

// span is a highlight with its effective rune range in the block text.
type span struct {
	start, end int
	h          *domain.Highlight
}

// Resolve computes the ordered run sequence for one block.
//
// For each highlight the stored offsets are preferred when they fall
// inside the text; otherwise the stored literal text is searched for,
// starting at the end of the previously placed highlight to reduce
// duplicate-text mismatches. Unresolvable highlights are dropped from
// rendering only - they stay in the store untouched.
//
// Overlapping ranges are resolved first-applied-wins: after sorting by
// start offset, a range that begins inside an already placed highlight
// is skipped entirely. No merging or nesting is attempted. This is a
// deliberate simplicity tradeoff; keep it exact, tests depend on it.
func Resolve(blockText string, highlights []*domain.Highlight) []Run {
	text := []rune(blockText)

	spans := resolveSpans(text, highlights)

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].start < spans[j].start
	})

	var runs []Run
	cursor := 0
	for _, sp := range spans {
		if sp.start < cursor {
			// Overlaps an already placed highlight.
			continue
		}
		if sp.start > cursor {
			runs = append(runs, Run{Text: string(text[cursor:sp.start])})
		}
		runs = append(runs, Run{Text: string(text[sp.start:sp.end]), Highlight: sp.h})
		cursor = sp.end
	}
	if cursor < len(text) {
		runs = append(runs, Run{Text: string(text[cursor:])})
	}

	if len(runs) == 0 && len(text) > 0 {
		runs = append(runs, Run{Text: blockText})
	}
	return runs
}

// resolveSpans determines the effective range of each highlight.
// searchFrom tracks the end of the previously placed range so repeated
// literals resolve to successive occurrences.
func resolveSpans(text []rune, highlights []*domain.Highlight) []span {
	spans := make([]span, 0, len(highlights))

	searchFrom := 0
	for _, h := range highlights {
		if h == nil {
			continue
		}

		if validOffsets(h, len(text)) {
			spans = append(spans, span{start: h.StartOffset, end: h.EndOffset, h: h})
			searchFrom = h.EndOffset
			continue
		}

		// Stored offsets no longer fit the text. Fall back to a literal
		// search for the matched text.
		idx := runeIndex(text, []rune(h.Text), searchFrom)
		if idx < 0 || len(h.Text) == 0 {
			continue // silently dropped from rendering
		}
		end := idx + len([]rune(h.Text))
		spans = append(spans, span{start: idx, end: end, h: h})
		searchFrom = end
	}
	return spans
}

// validOffsets reports whether the stored offsets address the text.
func validOffsets(h *domain.Highlight, textLen int) bool {
	return h.StartOffset >= 0 &&
		h.EndOffset > h.StartOffset &&
		h.EndOffset <= textLen
}

// runeIndex is a rune-offset substring search starting at from.
// Returns -1 when needle is empty or absent.
func runeIndex(text, needle []rune, from int) int {
	if len(needle) == 0 || from < 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(text); i++ {
		match := true
		for j := range needle {
			if text[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
