// Package domain contains the core types for narrated reading sessions.
package domain

// BlockKind classifies a block for display and narration pacing.
type BlockKind string

// Block kinds. Headings map to the markdown marker depth they were
// segmented from; everything else is a paragraph.
const (
	KindHeading1  BlockKind = "heading1"
	KindHeading2  BlockKind = "heading2"
	KindHeading3  BlockKind = "heading3"
	KindParagraph BlockKind = "paragraph"
)

// Block is one heading or paragraph unit of a document. The index is the
// sole stable identity used by every other component: highlights and time
// map entries are anchored to it, so blocks are never renumbered while a
// document is loaded.
type Block struct {
	Index int       `json:"index"`
	Text  string    `json:"text"`
	Kind  BlockKind `json:"kind"`
}

// IsHeading returns true for any heading level.
func (b Block) IsHeading() bool {
	return b.Kind == KindHeading1 || b.Kind == KindHeading2 || b.Kind == KindHeading3
}

// Texts extracts the block texts in order, for feeding the time map
// estimator and the playback session.
func Texts(blocks []Block) []string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return texts
}
