package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/miu-servicedesk/portal/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// contextKeyStore carries the request's session store
	contextKeyStore ContextKey = "session_store"
	// contextKeyState carries the session snapshot taken by the guard
	contextKeyState ContextKey = "session_state"
	// contextKeyPage carries the resolved page identity
	contextKeyPage ContextKey = "page"
)

// resolveStore returns the request's session store, minting a new
// session (and cookie) when none exists. A live session cookie wins; a
// valid remember-me cookie revives its session otherwise.
func (s *Server) resolveStore(w http.ResponseWriter, r *http.Request) (*session.Store, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sessionID, err := s.cookies.decode(cookie.Value); err == nil {
			return session.NewStore(s.sessions, sessionID), nil
		}
		// Tampered or expired cookie: fall through to a fresh session.
	}

	if store, ok := s.reviveRemembered(w, r); ok {
		return store, nil
	}

	sessionID := uuid.New().String()
	if err := s.setSessionCookie(w, sessionID); err != nil {
		return nil, err
	}
	return session.NewStore(s.sessions, sessionID), nil
}

// reviveRemembered restores a session from the remember-me cookie when
// its secret matches the stored bcrypt hash.
func (s *Server) reviveRemembered(w http.ResponseWriter, r *http.Request) (*session.Store, bool) {
	cookie, err := r.Cookie(rememberCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	sessionID, secret, ok := splitRememberCookie(cookie.Value)
	if !ok {
		s.clearRememberCookie(w)
		return nil, false
	}

	state, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil || !state.Remember || state.RememberHash == "" {
		s.clearRememberCookie(w)
		return nil, false
	}
	if !checkRememberSecret(secret, state.RememberHash) {
		s.clearRememberCookie(w)
		return nil, false
	}

	if err := s.setSessionCookie(w, sessionID); err != nil {
		return nil, false
	}
	s.logger.Info().Msg("session revived from remember-me cookie")
	return session.NewStore(s.sessions, sessionID), true
}

func withRequestSession(ctx context.Context, store *session.Store, state *session.State, page string) context.Context {
	ctx = context.WithValue(ctx, contextKeyStore, store)
	ctx = context.WithValue(ctx, contextKeyState, state)
	ctx = context.WithValue(ctx, contextKeyPage, page)
	return ctx
}

func storeFrom(ctx context.Context) *session.Store {
	store, _ := ctx.Value(contextKeyStore).(*session.Store)
	return store
}

func stateFrom(ctx context.Context) *session.State {
	state, _ := ctx.Value(contextKeyState).(*session.State)
	return state
}

func pageFrom(ctx context.Context) string {
	page, _ := ctx.Value(contextKeyPage).(string)
	return page
}
