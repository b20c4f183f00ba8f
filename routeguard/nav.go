package routeguard

import (
	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
)

// Link is one sidebar entry. An empty Roles set means any authenticated
// user sees it.
type Link struct {
	Page  string
	Label string
	Roles []users.Role
}

// NavItem is a Link resolved against the current page.
type NavItem struct {
	Link
	Active bool
}

// sidebar is the full navigation chrome; visibility is filtered per
// session, so the old attribute-driven show/hide toggling happens here
// instead of in the page.
var sidebar = []Link{
	{Page: PageDashboard, Label: "Dashboard"},
	{Page: PageMyTickets, Label: "My Tickets", Roles: requestersOnly},
	{Page: PageTickets, Label: "Tickets"},
	{Page: PageAssignedTickets, Label: "Assigned Tickets", Roles: technicianOrAbove},
	{Page: PageJuniorDashboard, Label: "Team Board", Roles: technicianOrAbove},
	{Page: PageSeniorDashboard, Label: "Escalations", Roles: seniorOrAbove},
	{Page: PageReports, Label: "Reports", Roles: seniorOrAbove},
	{Page: PageSupervisorDashboard, Label: "Supervision", Roles: supervisorOrAbove},
	{Page: PageWorkflows, Label: "Workflows", Roles: supervisorOrAbove},
	{Page: PageUsers, Label: "User Management", Roles: []users.Role{users.RoleAdmin}},
	{Page: PageSettings, Label: "Settings", Roles: []users.Role{users.RoleAdmin}},
	{Page: PageProfile, Label: "Profile"},
}

// NavFor returns the sidebar links visible to the session with the
// current page marked active. The guard has already allowed the page,
// so this never needs to fail; a page missing from the sidebar simply
// yields no active entry.
func NavFor(page string, state *session.State) []NavItem {
	gate := session.NewGate(state)
	if !gate.IsAuthenticated() {
		return nil
	}

	items := make([]NavItem, 0, len(sidebar))
	for _, link := range sidebar {
		if len(link.Roles) > 0 {
			names := make([]string, len(link.Roles))
			for i, r := range link.Roles {
				names[i] = string(r)
			}
			if !gate.HasAnyRole(names...) {
				continue
			}
		}
		items = append(items, NavItem{Link: link, Active: link.Page == page})
	}
	return items
}
