package session

import (
	"context"
	"sync"
)

// InMemoryRepo is a map-backed session repository for single-instance
// deployments and tests.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

// NewInMemoryRepo creates an empty in-memory session repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{sessions: make(map[string]*State)}
}

func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (r *InMemoryRepo) Put(_ context.Context, sessionID string, state *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to guard against external mutation.
	r.sessions[sessionID] = state.Clone()
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
