// Package authflow drives the portal's multi-step authentication
// handshake: signup, email-verification OTP, login OTP, authenticated.
package authflow

import (
	"context"

	"github.com/miu-servicedesk/portal/authflow/authapi"
	apperrors "github.com/miu-servicedesk/portal/internal/errors"
	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State names a position in the login handshake.
type State string

const (
	StateAnonymous               State = "ANONYMOUS"
	StateCredentialsSubmitted    State = "CREDENTIALS_SUBMITTED"
	StateAwaitingVerificationOTP State = "AWAITING_VERIFICATION_OTP"
	StateAwaitingLoginOTP        State = "AWAITING_LOGIN_OTP"
	StateAuthenticated           State = "AUTHENTICATED"
	StateFailed                  State = "FAILED"
)

// Flow is the state machine for one browser session's authentication.
// Construct one per request; durable state (token, pending record) lives
// in the session store, the State field only tracks the current request's
// progress through a transition. Per-request flows must share a
// ResendGuard (WithResendGuard) so the resend in-flight no-op holds
// across requests.
type Flow struct {
	store   *session.Store
	api     authapi.Client
	logger  zerolog.Logger
	state   State
	resends *ResendGuard
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithResendGuard shares a resend guard across flows. Callers that build
// a flow per request must pass the same guard every time, or the
// in-flight no-op cannot span two requests for the same session.
func WithResendGuard(guard *ResendGuard) Option {
	return func(f *Flow) {
		if guard != nil {
			f.resends = guard
		}
	}
}

// New creates a Flow bound to a session store and an auth backend client.
func New(store *session.Store, api authapi.Client, options ...Option) (*Flow, error) {
	if store == nil {
		return nil, errors.New("[authflow.New] session store is required")
	}
	if api == nil {
		return nil, errors.New("[authflow.New] auth client is required")
	}

	f := &Flow{store: store, api: api, state: StateAnonymous, logger: zerolog.Nop(), resends: NewResendGuard()}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// State returns the flow's current position.
func (f *Flow) State() State {
	return f.state
}

// Restore derives the flow position from the durable session state, for
// flows reconstructed on a fresh request.
func (f *Flow) Restore(ctx context.Context) error {
	state, err := f.store.State(ctx)
	if err != nil {
		return errors.Wrap(err, "[Flow.Restore] store.State")
	}
	switch {
	case state.Token != "":
		f.state = StateAuthenticated
	case state.Pending != nil && state.Pending.Purpose == session.PurposeVerification:
		f.state = StateAwaitingVerificationOTP
	case state.Pending != nil && state.Pending.Purpose == session.PurposeLogin:
		f.state = StateAwaitingLoginOTP
	default:
		f.state = StateAnonymous
	}
	return nil
}

// SubmitSignup validates the signup form, registers the account with the
// backend and leaves the session awaiting the email-verification OTP.
// Validation surfaces the first violated rule only; backend failures are
// passed through verbatim with no retry.
func (f *Flow) SubmitSignup(ctx context.Context, req users.SignupRequest) error {
	if err := users.ValidateSignup(req); err != nil {
		return err
	}

	_, err := f.api.Signup(ctx, authapi.SignupRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      string(users.ParseRole(string(req.Role))),
	})
	if err != nil {
		f.state = StateFailed
		return err
	}

	if err := f.store.SetPending(ctx, &session.Pending{
		Email:   req.Email,
		Purpose: session.PurposeVerification,
	}); err != nil {
		f.state = StateFailed
		return errors.Wrap(err, "[Flow.SubmitSignup] store.SetPending")
	}

	f.state = StateAwaitingVerificationOTP
	f.logger.Info().Str("email", req.Email).Msg("signup accepted, awaiting verification otp")
	return nil
}

// SubmitLogin validates credentials shape (strength is not re-checked at
// login), asks the backend to start a login, and records which OTP
// purpose the backend expects next.
func (f *Flow) SubmitLogin(ctx context.Context, email, password string) error {
	if err := users.ValidateLoginCredentials(email, password); err != nil {
		return err
	}

	f.state = StateCredentialsSubmitted
	reply, err := f.api.Login(ctx, email, password)
	if err != nil {
		f.state = StateFailed
		return err
	}

	purpose := session.PurposeLogin
	next := StateAwaitingLoginOTP
	if reply.NeedsVerification() {
		purpose = session.PurposeVerification
		next = StateAwaitingVerificationOTP
	}

	if err := f.store.SetPending(ctx, &session.Pending{Email: email, Purpose: purpose}); err != nil {
		f.state = StateFailed
		return errors.Wrap(err, "[Flow.SubmitLogin] store.SetPending")
	}

	f.state = next
	f.logger.Info().Str("email", email).Str("purpose", string(purpose)).Msg("login accepted, awaiting otp")
	return nil
}

// VerifyOTP submits the pending OTP. A verification success rolls the
// pending record over to the LOGIN purpose (the backend auto-issues the
// login OTP); a login success persists token and user and completes the
// handshake. On failure the awaiting state is unchanged and the backend
// message is surfaced verbatim.
func (f *Flow) VerifyOTP(ctx context.Context, code string) error {
	pending, err := f.store.Pending(ctx)
	if err != nil {
		return errors.Wrap(err, "[Flow.VerifyOTP] store.Pending")
	}
	if pending == nil {
		return apperrors.ErrPendingMissing
	}

	code = NormalizeOTP(code)
	if len(code) != OTPLength {
		return &users.ValidationError{Field: "otp", Message: "the code must be 6 digits"}
	}

	reply, err := f.api.VerifyOTP(ctx, pending.Email, code, pending.Purpose)
	if err != nil {
		return err
	}

	if pending.Purpose == session.PurposeVerification {
		if err := f.store.SetPending(ctx, &session.Pending{
			Email:   pending.Email,
			Purpose: session.PurposeLogin,
		}); err != nil {
			return errors.Wrap(err, "[Flow.VerifyOTP] store.SetPending")
		}
		f.state = StateAwaitingLoginOTP
		f.logger.Info().Str("email", pending.Email).Msg("email verified, awaiting login otp")
		return nil
	}

	if reply.Token == "" || reply.User == nil {
		return errors.New("[Flow.VerifyOTP] backend reply missing token or user")
	}

	reply.User.Normalize()
	if err := f.store.SetToken(ctx, reply.Token); err != nil {
		return errors.Wrap(err, "[Flow.VerifyOTP] store.SetToken")
	}
	if err := f.store.SetUser(ctx, reply.User); err != nil {
		return errors.Wrap(err, "[Flow.VerifyOTP] store.SetUser")
	}
	if err := f.store.ClearPending(ctx); err != nil {
		return errors.Wrap(err, "[Flow.VerifyOTP] store.ClearPending")
	}

	f.state = StateAuthenticated
	f.logger.Info().Str("email", pending.Email).Str("role", string(reply.User.Role)).Msg("login complete")
	return nil
}

// ResendOTP asks the backend to email a fresh code for the current
// pending record. While one resend is outstanding for the session,
// further calls are a silent no-op: the flow's single mutual-exclusion
// concern, tracked per session ID by the resend guard.
func (f *Flow) ResendOTP(ctx context.Context) error {
	sessionID := f.store.SessionID()
	if !f.resends.begin(sessionID) {
		return nil
	}
	defer f.resends.end(sessionID)

	pending, err := f.store.Pending(ctx)
	if err != nil {
		return errors.Wrap(err, "[Flow.ResendOTP] store.Pending")
	}
	if pending == nil {
		return apperrors.ErrPendingMissing
	}

	return f.api.ResendOTP(ctx, pending.Email, pending.Purpose)
}

// Cancel abandons the handshake: the pending record is cleared and the
// flow returns to anonymous. An in-flight backend request is not
// cancelled, matching the original modal-close behavior.
func (f *Flow) Cancel(ctx context.Context) error {
	if err := f.store.ClearPending(ctx); err != nil {
		return errors.Wrap(err, "[Flow.Cancel] store.ClearPending")
	}
	f.state = StateAnonymous
	return nil
}
