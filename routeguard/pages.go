// Package routeguard classifies portal pages into access tiers and
// decides, per request, whether a session may see a page or must be
// redirected. One table drives every decision; the near-duplicate
// per-page guard scripts of the old portal collapse into it.
package routeguard

import (
	"strings"

	"github.com/miu-servicedesk/portal/users"
)

// Page identities. A page identity is the final segment of the request
// path; an empty path means the entry page.
const (
	PageIndex               = "index.html"
	PageSignup              = "signup.html"
	PageDashboard           = "dashboard.html"
	PageJuniorDashboard     = "junior-dashboard.html"
	PageSeniorDashboard     = "senior-dashboard.html"
	PageSupervisorDashboard = "supervisor-dashboard.html"
	PageTickets             = "tickets.html"
	PageMyTickets           = "my-tickets.html"
	PageAssignedTickets     = "assigned-tickets.html"
	PageReports             = "reports.html"
	PageWorkflows           = "workflows.html"
	PageUsers               = "users.html"
	PageSettings            = "settings.html"
	PageProfile             = "profile.html"
)

// TierKind discriminates the access-tier variants.
type TierKind int

const (
	// TierPublic pages are reachable without a session; authenticated
	// users are bounced to their dashboard instead.
	TierPublic TierKind = iota
	// TierAdmin pages require the ADMIN role.
	TierAdmin
	// TierRoles pages require membership in an explicit role set.
	TierRoles
	// TierAuthenticated pages require only a token.
	TierAuthenticated
)

// Tier is the tagged access classification of one page. Roles is set
// only for TierRoles.
type Tier struct {
	Kind  TierKind
	Roles []users.Role
}

func Public() Tier                { return Tier{Kind: TierPublic} }
func AdminOnly() Tier             { return Tier{Kind: TierAdmin} }
func Authenticated() Tier         { return Tier{Kind: TierAuthenticated} }
func Roles(rs ...users.Role) Tier { return Tier{Kind: TierRoles, Roles: rs} }

// Role sets used by the restricted tiers. "Or above" sets include ADMIN,
// which is treated as an elevated technician view throughout the portal.
var (
	requestersOnly    = []users.Role{users.RoleStudent, users.RoleDoctor}
	technicianOrAbove = []users.Role{users.RoleTechnician, users.RoleSenior, users.RoleSupervisor, users.RoleAdmin}
	seniorOrAbove     = []users.Role{users.RoleSenior, users.RoleSupervisor, users.RoleAdmin}
	supervisorOrAbove = []users.Role{users.RoleSupervisor, users.RoleAdmin}
)

// pageTiers assigns every known page exactly one tier. Pages absent from
// the table default to TierAuthenticated.
var pageTiers = map[string]Tier{
	PageIndex:  Public(),
	PageSignup: Public(),

	PageUsers:    AdminOnly(),
	PageSettings: AdminOnly(),

	PageMyTickets:           Roles(requestersOnly...),
	PageJuniorDashboard:     Roles(technicianOrAbove...),
	PageAssignedTickets:     Roles(technicianOrAbove...),
	PageSeniorDashboard:     Roles(seniorOrAbove...),
	PageReports:             Roles(seniorOrAbove...),
	PageSupervisorDashboard: Roles(supervisorOrAbove...),
	PageWorkflows:           Roles(supervisorOrAbove...),

	// The personal dashboard is deliberately authenticated-only: it is
	// the fallback target for unknown roles, so gating it by role would
	// make the deny-redirect loop back on itself.
	PageDashboard: Authenticated(),
	PageTickets:   Authenticated(),
	PageProfile:   Authenticated(),
}

// PageFor derives the page identity from a request path: the final path
// segment, index.html when the path is empty or a bare directory.
func PageFor(path string) string {
	path = strings.SplitN(path, "?", 2)[0]
	path = strings.SplitN(path, "#", 2)[0]
	segment := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		segment = path[i+1:]
	}
	if segment == "" {
		return PageIndex
	}
	return segment
}

// TierFor returns the page's tier; unknown pages are authenticated-only.
func TierFor(page string) Tier {
	if tier, ok := pageTiers[page]; ok {
		return tier
	}
	return Authenticated()
}

// Known reports whether the page appears in the classification table.
func Known(page string) bool {
	_, ok := pageTiers[page]
	return ok
}
