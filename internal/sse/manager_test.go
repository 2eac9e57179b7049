package sse

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_EmitToSessionFiltersClients(t *testing.T) {
	m := NewManager(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	watcher, err := m.Connect("ssn-1")
	require.NoError(t, err)
	bystander, err := m.Connect("ssn-2")
	require.NoError(t, err)

	m.EmitToSession("ssn-1", NewBlockActivatedEvent("ssn-1", "bk-1", 3))

	select {
	case event := <-watcher.EventChan:
		assert.Equal(t, EventBlockActivated, event.Type)
		assert.Equal(t, "ssn-1", event.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("watching client never received the session event")
	}

	select {
	case event := <-bystander.EventChan:
		t.Fatalf("client watching another session received %v", event.Type)
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 2, m.ClientCount())
}

func TestManager_ShutdownDeliversBufferedEvents(t *testing.T) {
	// No broadcast loop running: the shutdown drain must be the only
	// receiver and still deliver what was queued before the close.
	m := NewManager(testLogger())

	client, err := m.Connect("")
	require.NoError(t, err)

	m.Emit(NewBlockActivatedEvent("ssn-1", "bk-1", 0))
	m.Emit(NewBlockActivatedEvent("ssn-1", "bk-1", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	var received int
	for range client.EventChan {
		received++
	}
	assert.Equal(t, 2, received, "buffered events must survive shutdown")
	assert.Zero(t, m.ClientCount())
}

func TestManager_ShutdownStopsBroadcastLoop(t *testing.T) {
	m := NewManager(testLogger())
	go m.Start(context.Background())

	m.Emit(NewHeartbeatEvent())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	// Idempotent: a second shutdown is a no-op, not a double close.
	require.NoError(t, m.Shutdown(ctx))

	// Events after shutdown are dropped, never sent on the closed channel.
	m.Emit(NewHeartbeatEvent())
}
