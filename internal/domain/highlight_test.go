package domain

import (
	"testing"
)

func TestHighlight_BlockIndex(t *testing.T) {
	tests := []struct {
		chapter string
		want    int
	}{
		{"0", 0},
		{"12", 12},
		{"", -1},
		{"intro", -1},
		{"-3", -1},
	}

	for _, tt := range tests {
		h := &Highlight{Chapter: tt.chapter}
		if got := h.BlockIndex(); got != tt.want {
			t.Errorf("BlockIndex(%q) = %d, want %d", tt.chapter, got, tt.want)
		}
	}
}

func TestHighlight_BelongsToBlock(t *testing.T) {
	h := NewHighlight("hl-1", "bk-1", "Hello", 0, 5, 3, ColorYellow)

	if !h.BelongsToBlock(3) {
		t.Error("expected highlight to belong to block 3")
	}
	if h.BelongsToBlock(4) {
		t.Error("highlight should not belong to block 4")
	}

	// Legacy records may carry padded or odd chapter strings; only a clean
	// numeric parse counts.
	legacy := &Highlight{Chapter: "3"}
	if !legacy.BelongsToBlock(3) {
		t.Error("legacy numeric chapter should match")
	}
}

func TestHighlight_Note(t *testing.T) {
	h := NewHighlight("hl-1", "bk-1", "Hello", 0, 5, 0, ColorBlue)

	h.SetNote("first thought")
	if h.Note == nil || h.Note.Content != "first thought" {
		t.Fatalf("note not set: %+v", h.Note)
	}

	created := h.Note.CreatedAt
	h.SetNote("revised thought")
	if h.Note.Content != "revised thought" {
		t.Errorf("note not replaced: %q", h.Note.Content)
	}
	if !h.Note.CreatedAt.Equal(created) {
		t.Error("replacing a note must preserve CreatedAt")
	}

	h.RemoveNote()
	if h.Note != nil {
		t.Error("note should be removed")
	}
}

func TestValidColor(t *testing.T) {
	for _, c := range []HighlightColor{ColorYellow, ColorBlue, ColorGreen, ColorPink} {
		if !ValidColor(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	if ValidColor("red") {
		t.Error("red is not a supported color")
	}
}

func TestTexts(t *testing.T) {
	blocks := []Block{
		{Index: 0, Text: "Title", Kind: KindHeading1},
		{Index: 1, Text: "Body", Kind: KindParagraph},
	}
	texts := Texts(blocks)
	if len(texts) != 2 || texts[0] != "Title" || texts[1] != "Body" {
		t.Errorf("unexpected texts: %v", texts)
	}
}
