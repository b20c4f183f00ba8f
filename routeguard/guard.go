package routeguard

import (
	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
)

// Reason explains a redirect decision.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonAlreadyAuthenticated Reason = "already-authenticated"
	ReasonLoginRequired        Reason = "login-required"
	ReasonAccessDenied         Reason = "access-denied"
)

// AccessDeniedMessage is the flash shown after an unauthorized redirect.
const AccessDeniedMessage = "You do not have access to that page."

// Decision is the guard's verdict for one page load. When Allow is
// false, Target names the page to redirect to.
type Decision struct {
	Allow  bool
	Target string
	Reason Reason
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(target string, reason Reason) Decision {
	return Decision{Target: target, Reason: reason}
}

// Evaluate applies the access rules to one (page, session) pair. It is a
// pure function of the page tier and the session's authentication state
// and role: same inputs, same decision, and it never fails; every
// problem resolves to a redirect. Tiers are checked in fixed precedence:
// public, admin, role set, default-authenticated; the first matching
// rule decides.
func Evaluate(page string, state *session.State) Decision {
	gate := session.NewGate(state)
	tier := TierFor(page)

	if tier.Kind == TierPublic {
		if gate.IsAuthenticated() {
			return redirect(DashboardFor(gate.Role()), ReasonAlreadyAuthenticated)
		}
		return allow()
	}

	if !gate.IsAuthenticated() {
		return redirect(PageIndex, ReasonLoginRequired)
	}

	switch tier.Kind {
	case TierAdmin:
		if !gate.IsAdmin() {
			return redirect(DashboardFor(gate.Role()), ReasonAccessDenied)
		}
	case TierRoles:
		names := make([]string, len(tier.Roles))
		for i, r := range tier.Roles {
			names[i] = string(r)
		}
		if !gate.HasAnyRole(names...) {
			return redirect(DashboardFor(gate.Role()), ReasonAccessDenied)
		}
	}
	return allow()
}

// DashboardFor maps a role to its default dashboard, used both for the
// post-login landing page and as the unauthorized-access fallback.
// ADMIN lands on the senior dashboard (an elevated technician view);
// unknown or missing roles land on the personal dashboard.
func DashboardFor(role users.Role) string {
	switch users.ParseRole(string(role)) {
	case users.RoleTechnician:
		return PageJuniorDashboard
	case users.RoleSenior, users.RoleAdmin:
		return PageSeniorDashboard
	case users.RoleSupervisor:
		return PageSupervisorDashboard
	default:
		return PageDashboard
	}
}
