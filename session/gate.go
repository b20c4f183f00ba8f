package session

import "github.com/miu-servicedesk/portal/users"

// Gate answers access questions over one session snapshot. Predicates
// are pure; take a fresh snapshot per request rather than caching a
// Gate across requests.
type Gate struct {
	state *State
}

// NewGate wraps a snapshot. A nil snapshot behaves as anonymous.
func NewGate(state *State) Gate {
	return Gate{state: state}
}

// IsAuthenticated reports token presence. The token is a presence flag
// only; authenticity is the backend's concern on each API call.
func (g Gate) IsAuthenticated() bool {
	return g.state != nil && g.state.Token != ""
}

// User returns the session's profile, nil for anonymous sessions.
func (g Gate) User() *users.User {
	if g.state == nil {
		return nil
	}
	return g.state.User
}

// HasRole matches the named role case-insensitively against the user's
// role and role list. A user with neither fails every role check.
func (g Gate) HasRole(name string) bool {
	return g.User().HasRole(name)
}

// HasAnyRole is the logical OR of HasRole over the list.
func (g Gate) HasAnyRole(names ...string) bool {
	return g.User().HasAnyRole(names...)
}

// Single-role shorthands. Page-tier hierarchy (e.g. supervisor pages
// admitting ADMIN) is expressed in the route table, not here.

func (g Gate) IsAdmin() bool      { return g.HasRole(string(users.RoleAdmin)) }
func (g Gate) IsStudent() bool    { return g.HasRole(string(users.RoleStudent)) }
func (g Gate) IsDoctor() bool     { return g.HasRole(string(users.RoleDoctor)) }
func (g Gate) IsTechnician() bool { return g.HasRole(string(users.RoleTechnician)) }
func (g Gate) IsSenior() bool     { return g.HasRole(string(users.RoleSenior)) }
func (g Gate) IsSupervisor() bool { return g.HasRole(string(users.RoleSupervisor)) }

// Role returns the canonical role, empty when anonymous or role-less.
func (g Gate) Role() users.Role {
	user := g.User()
	if user == nil {
		return ""
	}
	return users.ParseRole(string(user.Role))
}
