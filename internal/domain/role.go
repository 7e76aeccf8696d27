package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is one of the closed set of access levels.
type Role string

// Roles.
const (
	RoleSalesExecutive Role = "sales_executive"
	RoleAdmin          Role = "admin"
	RoleDeliveryHead   Role = "delivery_head"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSalesExecutive, RoleAdmin, RoleDeliveryHead:
		return true
	}
	return false
}

// Satisfies reports whether r grants access to a route that requires the given role.
// Roles are flat: there is no hierarchy and admin does not imply the others.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleSalesExecutive:
		return r == RoleSalesExecutive
	case RoleAdmin:
		return r == RoleAdmin
	case RoleDeliveryHead:
		return r == RoleDeliveryHead
	}
	return false
}

// ParseRole converts a stored or user-supplied string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

var titleCaser = cases.Title(language.English)

// Label returns a human-readable name, e.g. "Sales Executive".
func (r Role) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(r), "_", " "))
}
