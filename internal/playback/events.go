package playback

// Emitter receives playback events for broadcasting. The session never
// depends on how events reach clients.
type Emitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of Emitter for testing.
type NoopEmitter struct{}

// Emit implements Emitter as a no-op.
func (NoopEmitter) Emit(_ any) {}

// BlockActivatedEvent is emitted whenever the active block changes.
type BlockActivatedEvent struct {
	SessionID  string `json:"session_id"`
	BookID     string `json:"book_id"`
	BlockIndex int    `json:"block_index"`
}

// StateChangedEvent is emitted on play/pause/reset transitions.
type StateChangedEvent struct {
	SessionID string `json:"session_id"`
	State     State  `json:"state"`
	Playing   bool   `json:"playing"`
}
