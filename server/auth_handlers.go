package server

import (
	"net/http"
	"net/url"

	"github.com/miu-servicedesk/portal/authflow"
	apperrors "github.com/miu-servicedesk/portal/internal/errors"
	"github.com/miu-servicedesk/portal/routeguard"
	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
)

// newFlow builds the per-request auth flow from the request context. The
// server-wide resend guard is shared so the in-flight no-op spans
// requests for the same session.
func (s *Server) newFlow(r *http.Request) (*authflow.Flow, error) {
	return authflow.New(storeFrom(r.Context()), s.backends.Auth,
		authflow.WithLogger(s.logger), authflow.WithResendGuard(s.resends))
}

// SignupSubmissionHandler handles the signup form (POST /auth/signup).
func (s *Server) SignupSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		req := users.SignupRequest{
			FirstName:       r.FormValue("firstName"),
			LastName:        r.FormValue("lastName"),
			Email:           r.FormValue("email"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
			Role:            users.Role(r.FormValue("role")),
			AcceptedTerms:   r.FormValue("terms") != "",
		}

		flow, err := s.newFlow(r)
		if err != nil {
			s.logger.Err(err).Msg("failed to build auth flow")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := flow.SubmitSignup(r.Context(), req); err != nil {
			query := url.Values{
				"error":     {err.Error()},
				"email":     {req.Email},
				"firstName": {req.FirstName},
				"lastName":  {req.LastName},
			}
			var verr *users.ValidationError
			if apperrors.As(err, &verr) {
				query.Set("field", verr.Field)
			}
			http.Redirect(w, r, "/"+routeguard.PageSignup+"?"+query.Encode(), http.StatusSeeOther)
			return
		}

		// The OTP form on the entry page picks up the pending record.
		http.Redirect(w, r, "/"+routeguard.PageIndex, http.StatusSeeOther)
	}
}

// LoginSubmissionHandler handles the login form (POST /auth/login).
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("email")
		password := r.FormValue("password")
		remember := r.FormValue("remember") != ""

		flow, err := s.newFlow(r)
		if err != nil {
			s.logger.Err(err).Msg("failed to build auth flow")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := flow.SubmitLogin(r.Context(), email, password); err != nil {
			query := url.Values{"error": {err.Error()}, "email": {email}}
			http.Redirect(w, r, "/"+routeguard.PageIndex+"?"+query.Encode(), http.StatusSeeOther)
			return
		}

		if remember {
			// The hash is minted once the login completes; until then only
			// the intent is recorded.
			if err := storeFrom(r.Context()).SetRemember(r.Context(), true, ""); err != nil {
				s.logger.Err(err).Msg("failed to record remember intent")
			}
		}

		http.Redirect(w, r, "/"+routeguard.PageIndex, http.StatusSeeOther)
	}
}

// VerifyOTPHandler handles the OTP form (POST /auth/verify-otp).
func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		store := storeFrom(ctx)

		flow, err := s.newFlow(r)
		if err != nil {
			s.logger.Err(err).Msg("failed to build auth flow")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := flow.VerifyOTP(ctx, r.FormValue("otp")); err != nil {
			// The awaiting state survives a failed attempt; the form comes
			// back empty with the backend's message.
			query := url.Values{"error": {err.Error()}}
			http.Redirect(w, r, "/"+routeguard.PageIndex+"?"+query.Encode(), http.StatusSeeOther)
			return
		}

		if flow.State() == authflow.StateAwaitingLoginOTP {
			query := url.Values{"notice": {"Email verified. A sign-in code is on its way."}}
			http.Redirect(w, r, "/"+routeguard.PageIndex+"?"+query.Encode(), http.StatusSeeOther)
			return
		}

		// Authenticated: finish remember-me, then land on the stored
		// target or the role dashboard.
		state, err := store.State(ctx)
		if err != nil {
			s.logger.Err(err).Msg("failed to load session state")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if state.Remember {
			secret, hash, err := mintRememberSecret()
			if err != nil {
				s.logger.Err(err).Msg("failed to mint remember secret")
			} else if err := store.SetRemember(ctx, true, hash); err != nil {
				s.logger.Err(err).Msg("failed to store remember hash")
			} else {
				s.setRememberCookie(w, store.SessionID(), secret)
			}
		}

		target := state.PostLoginRedirect
		if target == "" {
			target = "/" + routeguard.DashboardFor(session.NewGate(state).Role())
		} else if err := store.SetPostLoginRedirect(ctx, ""); err != nil {
			s.logger.Err(err).Msg("failed to clear post-login redirect")
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// ResendOTPHandler handles POST /auth/resend-otp.
func (s *Server) ResendOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := s.newFlow(r)
		if err != nil {
			s.logger.Err(err).Msg("failed to build auth flow")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		query := url.Values{"notice": {"A new code has been sent."}}
		if err := flow.ResendOTP(r.Context()); err != nil {
			query = url.Values{"error": {err.Error()}}
		}
		http.Redirect(w, r, "/"+routeguard.PageIndex+"?"+query.Encode(), http.StatusSeeOther)
	}
}

// CancelHandler abandons the pending OTP handshake (POST /auth/cancel).
func (s *Server) CancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow, err := s.newFlow(r)
		if err != nil {
			s.logger.Err(err).Msg("failed to build auth flow")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if err := flow.Cancel(r.Context()); err != nil {
			s.logger.Err(err).Msg("failed to cancel pending verification")
		}
		http.Redirect(w, r, "/"+routeguard.PageIndex, http.StatusSeeOther)
	}
}

// LogoutHandler clears the whole session (GET /auth/logout).
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store := storeFrom(r.Context()); store != nil {
			if err := store.ClearAll(r.Context()); err != nil {
				s.logger.Err(err).Msg("failed to clear session")
			}
		}
		s.clearSessionCookie(w)
		s.clearRememberCookie(w)
		http.Redirect(w, r, "/"+routeguard.PageIndex, http.StatusSeeOther)
	}
}
