package server

import (
	"net/http"
	"runtime/debug"

	apperrors "github.com/miu-servicedesk/portal/internal/errors"
	"github.com/miu-servicedesk/portal/routeguard"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// PageMiddleware is the chain for page routes: the guard runs last so
// logging and recovery wrap it.
func (s *Server) PageMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.SecurityHeadersMiddleware,
		s.GuardMiddleware,
	}
}

// FormMiddleware is the chain for auth form submissions: no guard, the
// flow itself decides what each transition needs.
func (s *Server) FormMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.SessionMiddleware,
	}
}

// APIMiddleware is the chain for the JSON endpoints page scripts call.
func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.SessionMiddleware,
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("handler panicked")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func (s *Server) SecurityHeadersMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next(w, r)
	}
}

// SessionMiddleware resolves the request's session store without
// applying page access rules.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := s.resolveStore(w, r)
		if err != nil {
			s.logger.Err(err).Msg("failed to resolve session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		state, err := store.State(r.Context())
		if err != nil {
			s.logger.Err(err).Msg("failed to load session state")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		next(w, r.WithContext(withRequestSession(r.Context(), store, state, routeguard.PageFor(r.URL.Path))))
	}
}

// GuardMiddleware is the page router/guard. It never fails the request:
// every denied check becomes a client-side navigation. The decision is
// one-shot: nothing is retried, the next page load re-evaluates fresh.
func (s *Server) GuardMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		store, err := s.resolveStore(w, r)
		if err != nil {
			s.logger.Err(err).Msg("failed to resolve session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		state, err := store.State(ctx)
		if err != nil {
			s.logger.Err(err).Msg("failed to load session state")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		page := routeguard.PageFor(r.URL.Path)
		decision := routeguard.Evaluate(page, state)
		if !decision.Allow {
			switch decision.Reason {
			case routeguard.ReasonLoginRequired:
				// Remember where the user was headed; login returns there.
				if err := store.SetPostLoginRedirect(ctx, r.URL.RequestURI()); err != nil {
					s.logger.Err(err).Msg("failed to record post-login redirect")
				}
			case routeguard.ReasonAccessDenied:
				if err := store.SetFlash(ctx, routeguard.AccessDeniedMessage); err != nil {
					s.logger.Err(err).Msg("failed to record access-denied notice")
				}
			}
			http.Redirect(w, r, "/"+decision.Target, http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(withRequestSession(ctx, store, state, page)))
	}
}

// handleBackendError converts backend failures into responses. It is the
// single place that reacts to an expired session: clear everything and
// start over at the entry page.
func (s *Server) handleBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.Is(err, apperrors.ErrSessionExpired) {
		if store := storeFrom(r.Context()); store != nil {
			if clearErr := store.ClearAll(r.Context()); clearErr != nil {
				s.logger.Err(clearErr).Msg("failed to clear expired session")
			}
		}
		s.clearSessionCookie(w)
		s.clearRememberCookie(w)
		http.Redirect(w, r, "/"+routeguard.PageIndex, http.StatusSeeOther)
		return
	}

	s.logger.Err(err).Msg("backend call failed")
	http.Error(w, `{"message":"upstream request failed"}`, http.StatusBadGateway)
}
