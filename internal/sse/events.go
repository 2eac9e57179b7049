// Package sse implements Server-Sent Events for real-time reading sync and event broadcasting.
package sse

import (
	"time"

	"github.com/narrateapp/narrate-server/internal/domain"
)

// Narrate uses SSE for server-to-client communication only: the reading pane
// sends commands over the REST API and receives activation and highlight
// updates on the stream.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventDocumentLoaded represents a document finishing load into a session.
	EventDocumentLoaded EventType = "document.loaded"

	// EventBlockActivated represents the active block changing during playback.
	EventBlockActivated EventType = "playback.block_activated"
	// EventPlaybackState represents a playback state change (play/pause/ready).
	EventPlaybackState EventType = "playback.state"

	// EventHighlightCreated represents a highlight creation event.
	EventHighlightCreated EventType = "highlight.created"
	// EventHighlightUpdated represents a highlight update event.
	EventHighlightUpdated EventType = "highlight.updated"
	// EventHighlightDeleted represents a highlight deletion event.
	EventHighlightDeleted EventType = "highlight.deleted"

	// EventCheckpointUpdated represents reading progress being saved.
	EventCheckpointUpdated EventType = "checkpoint.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// Filtering field for multi-session support.
	// When set, the event is only delivered to clients watching this session.
	// Empty string means "broadcast to all".
	SessionID string `json:"-"` // Not sent to client
}

// DocumentLoadedEventData is the data payload for document load events.
type DocumentLoadedEventData struct {
	SessionID  string `json:"session_id"`
	BookID     string `json:"book_id"`
	BlockCount int    `json:"block_count"`
	Backend    string `json:"backend"`
}

// BlockActivatedEventData is the data payload for block activation events.
type BlockActivatedEventData struct {
	SessionID  string `json:"session_id"`
	BookID     string `json:"book_id"`
	BlockIndex int    `json:"block_index"`
}

// PlaybackStateEventData is the data payload for playback state events.
type PlaybackStateEventData struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Playing   bool   `json:"playing"`
}

// HighlightEventData is the data payload for highlight create/update events.
type HighlightEventData struct {
	Highlight *domain.Highlight `json:"highlight"`
}

// HighlightDeletedEventData is the data payload for highlight delete events.
type HighlightDeletedEventData struct {
	DeletedAt   time.Time `json:"deleted_at"`
	HighlightID string    `json:"highlight_id"`
	BookID      string    `json:"book_id"`
}

// CheckpointEventData is the data payload for checkpoint events.
type CheckpointEventData struct {
	Checkpoint *domain.Checkpoint `json:"checkpoint"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewDocumentLoadedEvent creates a document.loaded event scoped to a session.
func NewDocumentLoadedEvent(sessionID, bookID string, blockCount int, backend string) Event {
	return Event{
		Type: EventDocumentLoaded,
		Data: DocumentLoadedEventData{
			SessionID:  sessionID,
			BookID:     bookID,
			BlockCount: blockCount,
			Backend:    backend,
		},
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

// NewBlockActivatedEvent creates a playback.block_activated event scoped to a session.
func NewBlockActivatedEvent(sessionID, bookID string, blockIndex int) Event {
	return Event{
		Type: EventBlockActivated,
		Data: BlockActivatedEventData{
			SessionID:  sessionID,
			BookID:     bookID,
			BlockIndex: blockIndex,
		},
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

// NewPlaybackStateEvent creates a playback.state event scoped to a session.
func NewPlaybackStateEvent(sessionID, state string, playing bool) Event {
	return Event{
		Type: EventPlaybackState,
		Data: PlaybackStateEventData{
			SessionID: sessionID,
			State:     state,
			Playing:   playing,
		},
		Timestamp: time.Now(),
		SessionID: sessionID,
	}
}

// NewHighlightCreatedEvent creates a highlight.created event.
func NewHighlightCreatedEvent(h *domain.Highlight) Event {
	return Event{
		Type:      EventHighlightCreated,
		Data:      HighlightEventData{Highlight: h},
		Timestamp: time.Now(),
	}
}

// NewHighlightUpdatedEvent creates a highlight.updated event.
func NewHighlightUpdatedEvent(h *domain.Highlight) Event {
	return Event{
		Type:      EventHighlightUpdated,
		Data:      HighlightEventData{Highlight: h},
		Timestamp: time.Now(),
	}
}

// NewHighlightDeletedEvent creates a highlight.deleted event.
func NewHighlightDeletedEvent(highlightID, bookID string) Event {
	return Event{
		Type: EventHighlightDeleted,
		Data: HighlightDeletedEventData{
			DeletedAt:   time.Now(),
			HighlightID: highlightID,
			BookID:      bookID,
		},
		Timestamp: time.Now(),
	}
}

// NewCheckpointUpdatedEvent creates a checkpoint.updated event.
func NewCheckpointUpdatedEvent(c *domain.Checkpoint) Event {
	return Event{
		Type:      EventCheckpointUpdated,
		Data:      CheckpointEventData{Checkpoint: c},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: time.Now()},
		Timestamp: time.Now(),
	}
}
