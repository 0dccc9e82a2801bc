package rbac

// HasPermission reports whether role carries perm. Unknown roles carry nothing.
func HasPermission(role Role, perm Permission) bool {
	set, ok := permissionSets[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// HasAllPermissions reports whether role carries every perm. An empty list is satisfied.
func HasAllPermissions(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether role carries at least one perm.
func HasAnyPermission(role Role, perms []Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// IsAccountActive reports whether the status passes the activity gate.
func IsAccountActive(status AccountStatus) bool {
	return status == StatusActive
}

// AccessPair names the self-service and elevated permissions for one action
// on an owned resource.
type AccessPair struct {
	Own Permission
	Any Permission
}

var (
	ListingEdit       = AccessPair{Own: PermListingEditOwn, Any: PermListingEditAny}
	ListingDelete     = AccessPair{Own: PermListingDeleteOwn, Any: PermListingDeleteAny}
	OrderCancel       = AccessPair{Own: PermOrderCancelOwn, Any: PermOrderCancelAny}
	OrderUpdateStatus = AccessPair{Own: PermOrderUpdateStatusOwn, Any: PermOrderUpdateStatusAny}
	ReviewEdit        = AccessPair{Own: PermReviewEditOwn, Any: PermReviewModerateAny}
	ReviewDelete      = AccessPair{Own: PermReviewDeleteOwn, Any: PermReviewModerateAny}
	ProfileView       = AccessPair{Own: PermProfileViewOwn, Any: PermProfileViewAny}
	ProfileEdit       = AccessPair{Own: PermProfileEditOwn, Any: PermProfileEditAny}
)

// CanAccessResource grants access when the role holds anyPerm, or when the
// actor owns the resource and the role holds ownPerm.
func CanAccessResource(actorID, ownerID string, role Role, ownPerm, anyPerm Permission) bool {
	if HasPermission(role, anyPerm) {
		return true
	}
	return actorID != "" && actorID == ownerID && HasPermission(role, ownPerm)
}

// IsOwner is plain identity equality, for actions with no elevated path.
func IsOwner(actorID, ownerID string) bool {
	return actorID != "" && actorID == ownerID
}
