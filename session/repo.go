package session

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by Repo.Get for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Repo is the storage behind Store. Implementations must be safe for
// concurrent use; two tabs of the same browser may race on one session
// and the last write wins, matching the original storage semantics.
type Repo interface {
	// Get retrieves the state for a session ID. A missing session
	// returns ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*State, error)

	// Put creates or replaces the state for a session ID.
	Put(ctx context.Context, sessionID string, state *State) error

	// Delete removes a session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, sessionID string) error
}
