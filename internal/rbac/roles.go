package rbac

import "strings"

var roleLevels = map[Role]int{
	RoleUser:       1,
	RoleSeller:     2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

var roleDisplayNames = map[Role]string{
	RoleUser:       "User",
	RoleSeller:     "Seller",
	RoleAdmin:      "Admin",
	RoleSuperAdmin: "Super Admin",
}

// AllRoles returns every role in ascending order.
func AllRoles() []Role {
	return []Role{RoleUser, RoleSeller, RoleAdmin, RoleSuperAdmin}
}

// Level returns the role's position in the order. Unknown roles are 0.
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// DisplayName returns the human label for the role.
func (r Role) DisplayName() string {
	if name, ok := roleDisplayNames[r]; ok {
		return name
	}
	return string(r)
}

// ParseRole converts a raw value into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// HasMinimumRole reports whether actual ranks at or above required.
func HasMinimumRole(actual, required Role) bool {
	if !actual.Valid() || !required.Valid() {
		return false
	}
	return actual.Level() >= required.Level()
}

// IsOneOfRoles reports whether role is in allowed.
func IsOneOfRoles(role Role, allowed []Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
