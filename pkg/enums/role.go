package enums

import (
	"fmt"
	"strings"
)

// Role is a platform user role. Roles are ordered; gating compares levels.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleChurchAdmin Role = "church_admin"
	RolePriest      Role = "priest"
	RoleDeacon      Role = "deacon"
	RoleEditor      Role = "editor"
	RoleViewer      Role = "viewer"
	RoleGuest       Role = "guest"
)

var roleLevels = map[Role]int{
	RoleSuperAdmin:  7,
	RoleAdmin:       6,
	RoleChurchAdmin: 5,
	RolePriest:      4,
	RoleDeacon:      3,
	RoleEditor:      2,
	RoleViewer:      1,
	RoleGuest:       0,
}

// legacyRoles maps names still present in older user rows.
var legacyRoles = map[string]Role{
	"super":         RoleSuperAdmin,
	"system":        RoleAdmin,
	"dev_admin":     RoleAdmin,
	"manager":       RoleChurchAdmin,
	"owner":         RoleChurchAdmin,
	"administrator": RoleChurchAdmin,
	"supervisor":    RoleChurchAdmin,
	"clergy":        RolePriest,
	"user":          RoleEditor,
	"secretary":     RoleEditor,
	"treasurer":     RoleEditor,
	"volunteer":     RoleEditor,
	"member":        RoleEditor,
	"moderator":     RoleEditor,
	"assistant":     RoleEditor,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a canonical Role.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the privilege level, -1 for unknown roles.
func (r Role) Level() int {
	if lvl, ok := roleLevels[r]; ok {
		return lvl
	}
	return -1
}

// AtLeast reports whether r grants the privileges of required.
func (r Role) AtLeast(required Role) bool {
	return r.IsValid() && r.Level() >= required.Level()
}

// IsPlatformAdmin reports whether the role may act on any church.
func (r Role) IsPlatformAdmin() bool {
	return r.AtLeast(RoleAdmin)
}

// NormalizeRole maps stored role strings, legacy names included, onto a
// canonical Role. Empty becomes guest; anything unrecognised becomes viewer.
func NormalizeRole(value string) Role {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return RoleGuest
	}
	if r := Role(v); r.IsValid() {
		return r
	}
	if r, ok := legacyRoles[v]; ok {
		return r
	}
	return RoleViewer
}

// ParseRole converts raw input into a canonical Role without legacy mapping.
func ParseRole(value string) (Role, error) {
	r := Role(strings.TrimSpace(value))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role %q", value)
	}
	return r, nil
}
