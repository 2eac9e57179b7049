package domain

import (
	"strconv"
	"time"
)

// HighlightColor is the closed set of colors a highlight can carry.
type HighlightColor string

// Highlight colors.
const (
	ColorYellow HighlightColor = "yellow"
	ColorBlue   HighlightColor = "blue"
	ColorGreen  HighlightColor = "green"
	ColorPink   HighlightColor = "pink"
)

// ValidColor reports whether c is one of the supported highlight colors.
func ValidColor(c HighlightColor) bool {
	switch c {
	case ColorYellow, ColorBlue, ColorGreen, ColorPink:
		return true
	}
	return false
}

// Note is an optional annotation attached to a highlight.
type Note struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Highlight is a user-authored colored annotation over a character range
// of one block. StartOffset/EndOffset are offsets into the plain text
// content of the owning block, not into any rendered markup.
//
// Chapter is the owning block index stored as a string. Legacy records
// were written with numeric values by older clients, so it must always
// be compared through BlockIndex rather than as a raw string.
type Highlight struct {
	ID          string         `json:"id"`
	BookID      string         `json:"book_id"`
	Text        string         `json:"text"`
	StartOffset int            `json:"start_offset"`
	EndOffset   int            `json:"end_offset"`
	Color       HighlightColor `json:"color"`
	Chapter     string         `json:"chapter"`
	Note        *Note          `json:"note,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewHighlight creates a highlight anchored to a block.
func NewHighlight(id, bookID, text string, startOffset, endOffset, blockIndex int, color HighlightColor) *Highlight {
	now := time.Now()
	return &Highlight{
		ID:          id,
		BookID:      bookID,
		Text:        text,
		StartOffset: startOffset,
		EndOffset:   endOffset,
		Color:       color,
		Chapter:     strconv.Itoa(blockIndex),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// BlockIndex parses the Chapter field. Returns -1 when the field does
// not hold a block index at all.
func (h *Highlight) BlockIndex() int {
	idx, err := strconv.Atoi(h.Chapter)
	if err != nil || idx < 0 {
		return -1
	}
	return idx
}

// BelongsToBlock reports whether the highlight is anchored to the given
// block index, tolerating legacy string forms of the Chapter field.
func (h *Highlight) BelongsToBlock(index int) bool {
	return h.BlockIndex() == index
}

// SetNote attaches or replaces the note on the highlight.
func (h *Highlight) SetNote(content string) {
	now := time.Now()
	if h.Note == nil {
		h.Note = &Note{Content: content, CreatedAt: now, UpdatedAt: now}
	} else {
		h.Note.Content = content
		h.Note.UpdatedAt = now
	}
	h.UpdatedAt = now
}

// RemoveNote detaches the note, if any.
func (h *Highlight) RemoveNote() {
	h.Note = nil
	h.UpdatedAt = time.Now()
}

// SetColor changes the highlight color.
func (h *Highlight) SetColor(color HighlightColor) {
	h.Color = color
	h.UpdatedAt = time.Now()
}
