package segment

import (
	"reflect"
	"testing"

	"github.com/narrateapp/narrate-server/internal/domain"
)

func TestSegment_HeadingsAndParagraphs(t *testing.T) {
	raw := "# Title\n\nHello world.\n\nA second paragraph that is longer."

	blocks := Segment(raw)

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	want := []domain.Block{
		{Index: 0, Text: "Title", Kind: domain.KindHeading1},
		{Index: 1, Text: "Hello world.", Kind: domain.KindParagraph},
		{Index: 2, Text: "A second paragraph that is longer.", Kind: domain.KindParagraph},
	}
	if !reflect.DeepEqual(blocks, want) {
		t.Errorf("blocks = %+v, want %+v", blocks, want)
	}
}

func TestSegment_HeadingLevels(t *testing.T) {
	raw := "# One\n\n## Two\n\n### Three\n\n#### Four\n\n#NoSpace"

	blocks := Segment(raw)

	wantKinds := []domain.BlockKind{
		domain.KindHeading1,
		domain.KindHeading2,
		domain.KindHeading3,
		domain.KindParagraph, // four markers is not a heading
		domain.KindParagraph, // marker without space is not a heading
	}
	if len(blocks) != len(wantKinds) {
		t.Fatalf("expected %d blocks, got %d", len(wantKinds), len(blocks))
	}
	for i, kind := range wantKinds {
		if blocks[i].Kind != kind {
			t.Errorf("block %d: kind = %q, want %q", i, blocks[i].Kind, kind)
		}
	}

	if blocks[0].Text != "One" {
		t.Errorf("heading marker not stripped: %q", blocks[0].Text)
	}
	if blocks[3].Text != "#### Four" {
		t.Errorf("deep marker should be kept verbatim: %q", blocks[3].Text)
	}
}

func TestSegment_SingleNewlineSplits(t *testing.T) {
	// A newline immediately followed by non-whitespace starts a new block.
	raw := "First paragraph.\nSecond paragraph."

	blocks := Segment(raw)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "First paragraph." || blocks[1].Text != "Second paragraph." {
		t.Errorf("unexpected texts: %+v", blocks)
	}
}

func TestSegment_IndentedContinuationJoins(t *testing.T) {
	raw := "A line that wraps\n  onto an indented continuation."

	blocks := Segment(raw)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "A line that wraps onto an indented continuation." {
		t.Errorf("continuation not joined: %q", blocks[0].Text)
	}
}

func TestSegment_DropsEmptyUnits(t *testing.T) {
	raw := "\n\n   \n\nOnly block\n\n\t\n\n"

	blocks := Segment(raw)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Index != 0 || blocks[0].Text != "Only block" {
		t.Errorf("unexpected block: %+v", blocks[0])
	}
}

func TestSegment_Empty(t *testing.T) {
	if got := Segment(""); len(got) != 0 {
		t.Errorf("expected no blocks, got %+v", got)
	}
	if got := Segment("   \n\n  "); len(got) != 0 {
		t.Errorf("expected no blocks for whitespace input, got %+v", got)
	}
}

func TestSegment_Idempotent(t *testing.T) {
	raw := "# Title\n\nBody one.\nBody two.\r\n\r\nBody three."

	first := Segment(raw)
	second := Segment(raw)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("segmentation is not deterministic:\n%+v\n%+v", first, second)
	}
}
