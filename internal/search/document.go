// Package search provides full-text search over highlights using Bleve.
// Readers search the exact words they highlighted, plus any note they
// attached, and jump straight back to the block the match lives in.
package search

import (
	"github.com/narrateapp/narrate-server/internal/domain"
)

// SearchDocument is the document structure for the Bleve index.
type SearchDocument struct {
	// Identity
	ID     string `json:"id"`      // Highlight ID (hl-xxx)
	BookID string `json:"book_id"` // For scoping search to one book

	// Searchable text
	Text string `json:"text"`           // The highlighted passage
	Note string `json:"note,omitempty"` // Attached note content, if any

	// Filterable fields
	Color      string `json:"color"`
	BlockIndex int    `json:"block_index"`

	// Timestamp for sorting by recency
	CreatedAt int64 `json:"created_at"` // Unix millis
}

// FromHighlight builds a search document from a highlight.
func FromHighlight(h *domain.Highlight) *SearchDocument {
	doc := &SearchDocument{
		ID:         h.ID,
		BookID:     h.BookID,
		Text:       h.Text,
		Color:      string(h.Color),
		BlockIndex: h.BlockIndex(),
		CreatedAt:  h.CreatedAt.UnixMilli(),
	}
	if h.Note != nil {
		doc.Note = h.Note.Content
	}
	return doc
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          d.ID,
		"book_id":     d.BookID,
		"text":        d.Text,
		"color":       d.Color,
		"block_index": d.BlockIndex,
		"created_at":  d.CreatedAt,
	}

	if d.Note != "" {
		m["note"] = d.Note
	}

	return m
}
