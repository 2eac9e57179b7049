package highlight

import (
	"strings"
	"testing"

	"github.com/narrateapp/narrate-server/internal/domain"
)

func hl(id string, start, end int, text string) *domain.Highlight {
	return &domain.Highlight{
		ID:          id,
		Text:        text,
		StartOffset: start,
		EndOffset:   end,
		Color:       domain.ColorYellow,
	}
}

// rejoin concatenates run texts; it must always equal the block text.
func rejoin(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

func TestResolve_SimpleOffsets(t *testing.T) {
	runs := Resolve("Hello world", []*domain.Highlight{hl("hl-1", 0, 5, "Hello")})

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].Text != "Hello" || runs[0].Highlight == nil {
		t.Errorf("first run wrong: %+v", runs[0])
	}
	if runs[1].Text != " world" || runs[1].Highlight != nil {
		t.Errorf("second run wrong: %+v", runs[1])
	}
}

func TestResolve_NoHighlights(t *testing.T) {
	runs := Resolve("Plain text.", nil)
	if len(runs) != 1 || runs[0].Text != "Plain text." || runs[0].Highlight != nil {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestResolve_CoversTextExactly(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog."
	highlights := []*domain.Highlight{
		hl("hl-1", 4, 9, "quick"),
		hl("hl-2", 16, 19, "fox"),
		hl("hl-3", 35, 39, "lazy"),
	}

	runs := Resolve(text, highlights)

	if got := rejoin(runs); got != text {
		t.Errorf("runs do not cover text exactly:\n got %q\nwant %q", got, text)
	}
}

func TestResolve_OverlapFirstAppliedWins(t *testing.T) {
	// Ranges [0,5) and [3,8): exactly one highlighted run covering [0,5),
	// then plain text, never two overlapping highlighted runs.
	text := "abcdefghij"
	runs := Resolve(text, []*domain.Highlight{
		hl("hl-1", 0, 5, "abcde"),
		hl("hl-2", 3, 8, "defgh"),
	})

	var highlighted []Run
	for _, r := range runs {
		if r.Highlight != nil {
			highlighted = append(highlighted, r)
		}
	}
	if len(highlighted) != 1 {
		t.Fatalf("expected exactly 1 highlighted run, got %d: %+v", len(highlighted), runs)
	}
	if highlighted[0].Text != "abcde" || highlighted[0].Highlight.ID != "hl-1" {
		t.Errorf("wrong winning run: %+v", highlighted[0])
	}
	if got := rejoin(runs); got != text {
		t.Errorf("coverage broken: %q", got)
	}
}

func TestResolve_FallbackToLiteralSearch(t *testing.T) {
	// Offsets out of range: resolver falls back to substring search.
	text := "say it again, say it louder"
	h := hl("hl-1", 500, 600, "say it")

	runs := Resolve(text, []*domain.Highlight{h})

	if runs[0].Highlight == nil || runs[0].Text != "say it" {
		t.Fatalf("fallback did not place highlight at first occurrence: %+v", runs)
	}
}

func TestResolve_FallbackSearchesAfterPreviousHighlight(t *testing.T) {
	// The second fallback starts searching at the end of the first placed
	// highlight, so a repeated literal lands on the second occurrence.
	text := "say it again, say it louder"
	first := hl("hl-1", 0, 6, "say it")
	second := hl("hl-2", 900, 901, "say it")

	runs := Resolve(text, []*domain.Highlight{first, second})

	var starts []string
	for _, r := range runs {
		if r.Highlight != nil {
			starts = append(starts, r.Highlight.ID)
		}
	}
	if len(starts) != 2 {
		t.Fatalf("expected both highlights placed, got %v in %+v", starts, runs)
	}
	if got := rejoin(runs); got != text {
		t.Errorf("coverage broken: %q", got)
	}
	// hl-2 must not shadow hl-1's occurrence.
	if runs[0].Highlight == nil || runs[0].Highlight.ID != "hl-1" {
		t.Errorf("first occurrence not owned by hl-1: %+v", runs[0])
	}
}

func TestResolve_UnresolvableDroppedSilently(t *testing.T) {
	text := "nothing matches here"
	h := hl("hl-1", 100, 200, "absent literal")

	runs := Resolve(text, []*domain.Highlight{h})

	if len(runs) != 1 || runs[0].Highlight != nil {
		t.Errorf("unresolvable highlight should be dropped: %+v", runs)
	}
	if rejoin(runs) != text {
		t.Errorf("coverage broken: %q", rejoin(runs))
	}
}

func TestResolve_FallbackNeverSearchesBehindCursor(t *testing.T) {
	// The literal search only moves forward from the end of the previous
	// placed highlight. A literal that occurs solely before that point
	// is dropped, not rescued by a second pass from the start.
	text := "abc xyz"
	first := hl("hl-1", 4, 7, "xyz")
	second := hl("hl-2", 900, 901, "abc")

	runs := Resolve(text, []*domain.Highlight{first, second})

	for _, r := range runs {
		if r.Highlight != nil && r.Highlight.ID == "hl-2" {
			t.Fatalf("hl-2 resolved behind the search cursor: %+v", runs)
		}
	}
	if rejoin(runs) != text {
		t.Errorf("coverage broken: %q", rejoin(runs))
	}
}

func TestResolve_AdjacentHighlights(t *testing.T) {
	text := "abcdef"
	runs := Resolve(text, []*domain.Highlight{
		hl("hl-1", 0, 3, "abc"),
		hl("hl-2", 3, 6, "def"),
	})

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].Highlight == nil || runs[1].Highlight == nil {
		t.Errorf("both runs should be highlighted: %+v", runs)
	}
	if rejoin(runs) != text {
		t.Errorf("coverage broken: %q", rejoin(runs))
	}
}

func TestResolve_UnsortedInputSortedByStart(t *testing.T) {
	text := "one two three four"
	runs := Resolve(text, []*domain.Highlight{
		hl("hl-2", 8, 13, "three"),
		hl("hl-1", 0, 3, "one"),
	})

	if runs[0].Highlight == nil || runs[0].Highlight.ID != "hl-1" {
		t.Errorf("runs not sorted by start: %+v", runs)
	}
	if rejoin(runs) != text {
		t.Errorf("coverage broken: %q", rejoin(runs))
	}
}

func TestResolve_MultibyteText(t *testing.T) {
	// Offsets are rune offsets, so multibyte text must not shift runs.
	text := "ünïcödé text here"
	runs := Resolve(text, []*domain.Highlight{hl("hl-1", 0, 7, "ünïcödé")})

	if runs[0].Text != "ünïcödé" || runs[0].Highlight == nil {
		t.Errorf("multibyte offsets mishandled: %+v", runs)
	}
	if rejoin(runs) != text {
		t.Errorf("coverage broken: %q", rejoin(runs))
	}
}

func TestResolve_EmptyText(t *testing.T) {
	runs := Resolve("", []*domain.Highlight{hl("hl-1", 0, 5, "Hello")})
	if len(runs) != 0 {
		t.Errorf("expected no runs for empty text, got %+v", runs)
	}
}
