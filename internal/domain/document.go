package domain

import "time"

// Document is a cached, segmented copy of a book's text.
// The raw text is kept alongside the blocks so highlights can be re-resolved
// without another round trip to the content service.
type Document struct {
	BookID    string    `json:"bookId"`
	Raw       string    `json:"raw"`
	Blocks    []Block   `json:"blocks"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// NewDocument creates a document snapshot for a book.
func NewDocument(bookID, raw string, blocks []Block) *Document {
	return &Document{
		BookID:    bookID,
		Raw:       raw,
		Blocks:    blocks,
		FetchedAt: time.Now(),
	}
}

// Block returns the block at index, or nil when out of range.
func (d *Document) Block(index int) *Block {
	if index < 0 || index >= len(d.Blocks) {
		return nil
	}
	return &d.Blocks[index]
}
