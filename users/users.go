package users

import (
	"strings"
)

// Role is one of the portal's canonical access roles. Roles are stored
// upper-case; ParseRole accepts any casing (older deployments persisted
// lower-case roles).
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleDoctor     Role = "DOCTOR"
	RoleTechnician Role = "TECHNICIAN"
	RoleSenior     Role = "SENIOR"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// AllRoles lists every canonical role.
var AllRoles = []Role{RoleStudent, RoleDoctor, RoleTechnician, RoleSenior, RoleSupervisor, RoleAdmin}

// ParseRole normalizes a role string to its canonical form. Unknown or
// empty input returns the zero Role.
func ParseRole(s string) Role {
	candidate := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range AllRoles {
		if candidate == r {
			return r
		}
	}
	return ""
}

// User is the profile cached alongside the bearer token for the lifetime
// of a session. Role is the single canonical role; Roles is an optional
// superset kept for compatibility with backends that return a role list.
// When both are set, Role must equal the first element of Roles.
type User struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Role        Role   `json:"role,omitempty"`
	Roles       []Role `json:"roles,omitempty"`
}

// Normalize canonicalizes the user in place: roles are upper-cased,
// DisplayName is synthesized from the first/last name when absent, and
// Role is derived from Roles[0] when only the list is present.
func (u *User) Normalize() {
	u.Role = ParseRole(string(u.Role))
	normalized := u.Roles[:0]
	for _, r := range u.Roles {
		if parsed := ParseRole(string(r)); parsed != "" {
			normalized = append(normalized, parsed)
		}
	}
	u.Roles = normalized
	if len(u.Roles) == 0 {
		u.Roles = nil
	}

	if u.Role == "" && len(u.Roles) > 0 {
		u.Role = u.Roles[0]
	}
	if u.Role != "" && len(u.Roles) > 0 && u.Roles[0] != u.Role {
		// Keep the invariant Role == Roles[0] without losing list entries.
		rest := make([]Role, 0, len(u.Roles))
		for _, r := range u.Roles {
			if r != u.Role {
				rest = append(rest, r)
			}
		}
		u.Roles = append([]Role{u.Role}, rest...)
	}

	if u.DisplayName == "" {
		u.DisplayName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
}

// HasRole reports whether the user holds the named role, matching
// case-insensitively against Role and the Roles list.
func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	role := ParseRole(name)
	if role == "" {
		return false
	}
	if u.Role != "" && ParseRole(string(u.Role)) == role {
		return true
	}
	for _, r := range u.Roles {
		if ParseRole(string(r)) == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of the named roles.
func (u *User) HasAnyRole(names ...string) bool {
	for _, name := range names {
		if u.HasRole(name) {
			return true
		}
	}
	return false
}
