package session

import (
	"context"

	"github.com/miu-servicedesk/portal/users"
	"github.com/pkg/errors"
)

// Store binds a Repo to one session ID and exposes the portal's
// key-value session contract: token, user profile, remember flag and
// the transient pending-verification record. It never talks to the
// network and never judges token authenticity.
type Store struct {
	repo      Repo
	sessionID string
}

// NewStore creates a Store for one browser session.
func NewStore(repo Repo, sessionID string) *Store {
	return &Store{repo: repo, sessionID: sessionID}
}

// SessionID returns the bound session ID.
func (s *Store) SessionID() string {
	return s.sessionID
}

// State returns the current snapshot, an empty State when the session
// does not exist yet.
func (s *Store) State(ctx context.Context) (*State, error) {
	state, err := s.repo.Get(ctx, s.sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return &State{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.State] repo.Get")
	}
	return state, nil
}

// Token returns the stored bearer token, empty when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	state, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	return state.Token, nil
}

// SetToken stores the bearer token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.update(ctx, func(state *State) {
		state.Token = token
	})
}

// User returns the cached profile, normalized on read: legacy
// lower-case roles are canonicalized and a display name is synthesized
// when the backend did not send one.
func (s *Store) User(ctx context.Context) (*users.User, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if state.User == nil {
		return nil, nil
	}
	state.User.Normalize()
	return state.User, nil
}

// SetUser stores the profile after normalizing it.
func (s *Store) SetUser(ctx context.Context, user *users.User) error {
	if user != nil {
		user.Normalize()
	}
	return s.update(ctx, func(state *State) {
		state.User = user
	})
}

// Pending returns the pending-verification record, nil when absent.
func (s *Store) Pending(ctx context.Context) (*Pending, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return state.Pending, nil
}

// SetPending stores the pending-verification record.
func (s *Store) SetPending(ctx context.Context, pending *Pending) error {
	return s.update(ctx, func(state *State) {
		state.Pending = pending
	})
}

// ClearPending removes the pending-verification record.
func (s *Store) ClearPending(ctx context.Context) error {
	return s.SetPending(ctx, nil)
}

// SetRemember stores the remember flag and the hash guarding the
// remember-me cookie secret.
func (s *Store) SetRemember(ctx context.Context, remember bool, secretHash string) error {
	return s.update(ctx, func(state *State) {
		state.Remember = remember
		state.RememberHash = secretHash
	})
}

// SetPostLoginRedirect records the URL to return to after login.
func (s *Store) SetPostLoginRedirect(ctx context.Context, target string) error {
	return s.update(ctx, func(state *State) {
		state.PostLoginRedirect = target
	})
}

// SetFlash stores a one-shot notice for the next page render.
func (s *Store) SetFlash(ctx context.Context, message string) error {
	return s.update(ctx, func(state *State) {
		state.Flash = message
	})
}

// TakeFlash returns and clears the stored notice.
func (s *Store) TakeFlash(ctx context.Context) (string, error) {
	state, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	if state.Flash == "" {
		return "", nil
	}
	flash := state.Flash
	state.Flash = ""
	if err := s.repo.Put(ctx, s.sessionID, state); err != nil {
		return "", errors.Wrap(err, "[Store.TakeFlash] repo.Put")
	}
	return flash, nil
}

// ClearAll removes token, user, remember state and pending record in one
// repo write; no partial-clear state is observable. Clearing an already
// empty session is a no-op.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.sessionID); err != nil {
		return errors.Wrap(err, "[Store.ClearAll] repo.Delete")
	}
	return nil
}

func (s *Store) update(ctx context.Context, mutate func(*State)) error {
	state, err := s.State(ctx)
	if err != nil {
		return err
	}
	mutate(state)
	if err := s.repo.Put(ctx, s.sessionID, state); err != nil {
		return errors.Wrap(err, "[Store.update] repo.Put")
	}
	return nil
}
