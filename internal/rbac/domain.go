package rbac

// Role is the coarse actor classification. Roles are totally ordered.
type Role string

const (
	RoleUser       Role = "USER"
	RoleSeller     Role = "SELLER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// AccountStatus gates every authorization check independently of role.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusBanned    AccountStatus = "BANNED"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBanned:
		return true
	}
	return false
}

// Permission is a capability token namespaced as <domain>.<action>.
type Permission string

// Actor is the authenticated principal an operation runs on behalf of.
type Actor struct {
	ID     string
	Role   Role
	Status AccountStatus
}

// Authorize applies the status gate and permission check for the actor.
func (a Actor) Authorize(perm Permission) Decision {
	return Authorize(a.Role, a.Status, perm)
}

// Can reports whether the actor may act on a resource owned by ownerID.
func (a Actor) Can(ownerID string, pair AccessPair) bool {
	return CanAccessResource(a.ID, ownerID, a.Role, pair.Own, pair.Any)
}
