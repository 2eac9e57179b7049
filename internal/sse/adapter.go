package sse

import (
	"github.com/narrateapp/narrate-server/internal/playback"
)

// PlaybackAdapter bridges playback session events onto the SSE stream.
// It implements playback.Emitter so sessions stay unaware of transport.
type PlaybackAdapter struct {
	manager *Manager
}

// NewPlaybackAdapter creates an adapter that forwards playback events to the manager.
func NewPlaybackAdapter(manager *Manager) *PlaybackAdapter {
	return &PlaybackAdapter{manager: manager}
}

// Emit converts a playback event into its SSE shape and queues it.
// Unknown event types are dropped silently so playback can grow new events
// without a lockstep change here.
func (a *PlaybackAdapter) Emit(event any) {
	switch e := event.(type) {
	case playback.BlockActivatedEvent:
		a.manager.EmitToSession(e.SessionID, NewBlockActivatedEvent(e.SessionID, e.BookID, e.BlockIndex))
	case playback.StateChangedEvent:
		a.manager.EmitToSession(e.SessionID, NewPlaybackStateEvent(e.SessionID, string(e.State), e.Playing))
	}
}
