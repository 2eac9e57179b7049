package domain

import "time"

// Checkpoint records the last active block for a book so a session can
// resume where the reader left off. One checkpoint per book.
type Checkpoint struct {
	BookID     string    `json:"book_id"`
	BlockIndex int       `json:"block_index"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewCheckpoint creates a checkpoint at the given block.
func NewCheckpoint(bookID string, blockIndex int) *Checkpoint {
	return &Checkpoint{
		BookID:     bookID,
		BlockIndex: blockIndex,
		UpdatedAt:  time.Now(),
	}
}

// Advance moves the checkpoint to a new block.
func (c *Checkpoint) Advance(blockIndex int) {
	c.BlockIndex = blockIndex
	c.UpdatedAt = time.Now()
}
