package playback

import (
	"log/slog"
	"sync"

	"github.com/narrateapp/narrate-server/internal/id"
	"github.com/narrateapp/narrate-server/internal/synth"
)

// Registry tracks one playback session per connected reading client.
type Registry struct {
	engine  synth.Engine
	emitter Emitter
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(engine synth.Engine, emitter Emitter, logger *slog.Logger) *Registry {
	return &Registry{
		engine:   engine,
		emitter:  emitter,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new idle session.
func (r *Registry) Create() (*Session, error) {
	sessionID, err := id.Generate("ssn")
	if err != nil {
		return nil, err
	}

	session := NewSession(sessionID, r.engine, r.emitter, r.logger)

	r.mu.Lock()
	r.sessions[sessionID] = session
	r.mu.Unlock()

	r.logger.Debug("created playback session", "session_id", sessionID)
	return session, nil
}

// Get returns a session by ID.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

// Remove resets and forgets a session.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		session.Reset()
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
