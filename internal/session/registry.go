package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/filings-tracker/internal/common"
)

// Registry holds the live sessions of this process. Nothing survives a restart.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{sessions: make(map[string]*Session), logger: logger}
}

// Create registers a new idle session.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	s := New(id, r.logger)
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	r.logger.Info("session.created", "session_id", id)
	return s
}

// Get returns the session with id or common.ErrSessionNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return s, nil
}

// Delete ends a session and drops its documents.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.logger.Info("session.ended", "session_id", id)
	return true
}
