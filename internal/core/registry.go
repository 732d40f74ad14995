package core

import (
	"errors"
	"sync"

	"healthmate/internal/metrics"
	"healthmate/pkg"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Registry keeps live sessions in memory.  Nothing survives a restart.
type Registry struct {
	chat *ChatService

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty Registry whose sessions use chat.
func NewRegistry(chat *ChatService) *Registry {
	return &Registry{chat: chat, sessions: make(map[string]*Session)}
}

// Create starts a new session seeded with the welcome turn for lang.
func (r *Registry) Create(lang pkg.Language) *Session {
	s := newSession(uuid.New().String(), lang, r.chat)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	metrics.SessionsCreatedTotal.Inc()
	return s
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete drops a session.  Deleting an unknown ID is not an error.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
