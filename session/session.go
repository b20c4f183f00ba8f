// Package session holds the per-browser session state for the portal:
// the bearer token issued by the auth backend, the cached user profile,
// and the transient pending-verification record of the OTP flow.
package session

import (
	"github.com/miu-servicedesk/portal/internal/utils"
	"github.com/miu-servicedesk/portal/users"
)

// Purpose identifies which OTP challenge a pending record is waiting on.
type Purpose string

const (
	// PurposeVerification is the post-signup email verification OTP.
	PurposeVerification Purpose = "VERIFICATION"
	// PurposeLogin is the OTP that completes a login.
	PurposeLogin Purpose = "LOGIN"
)

// Pending tracks which OTP purpose and email is currently awaiting a
// code. Cleared on successful login or explicit cancel.
type Pending struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
}

// State is everything the portal persists for one browser session.
// Token presence alone defines "authenticated"; the token is never
// validated here, the backend rejects stale tokens on use.
type State struct {
	Token        string      `json:"token,omitempty"`
	User         *users.User `json:"user,omitempty"`
	Remember     bool        `json:"remember,omitempty"`
	RememberHash string      `json:"rememberHash,omitempty"`
	Pending      *Pending    `json:"pendingVerification,omitempty"`

	// PostLoginRedirect is the URL the user originally asked for before
	// being bounced to the login page.
	PostLoginRedirect string `json:"postLoginRedirect,omitempty"`

	// Flash is a one-shot notice (e.g. access denied) consumed by the
	// next page render.
	Flash string `json:"flash,omitempty"`
}

// Clone returns a deep copy so repo implementations can hand out
// snapshots without aliasing the stored value.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.User != nil {
		u := *s.User
		if s.User.Roles != nil {
			u.Roles = append([]users.Role(nil), s.User.Roles...)
		}
		out.User = &u
	}
	if s.Pending != nil {
		out.Pending = utils.Ptr(*s.Pending)
	}
	return &out
}
