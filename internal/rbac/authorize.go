package rbac

import "github.com/gadgetbay/gadgetbay/internal/shared"

// Decision is the outcome of an authorization check. The zero value is a denial.
type Decision struct {
	Authorized bool
	Code       shared.Code
}

// Allowed is the authorized decision.
var Allowed = Decision{Authorized: true}

// Err returns nil for an authorized decision, otherwise the matching Denial.
func (d Decision) Err() error {
	if d.Authorized {
		return nil
	}
	switch d.Code {
	case shared.CodeAccountSuspended:
		return shared.ErrAccountSuspended
	case shared.CodeAccountBanned:
		return shared.ErrAccountBanned
	case shared.CodeUnauthenticated:
		return shared.ErrUnauthenticated
	default:
		return shared.ErrInsufficientPermissions
	}
}

// Authorize is the first call of every privileged operation. The account
// status gate runs before the permission check.
func Authorize(role Role, status AccountStatus, perm Permission) Decision {
	if d := RequireActive(status); !d.Authorized {
		return d
	}
	if !HasPermission(role, perm) {
		return Decision{Code: shared.CodeInsufficientPermissions}
	}
	return Allowed
}

// RequireActive applies only the status gate. SUSPENDED maps to
// ACCOUNT_SUSPENDED; every other inactive status maps to ACCOUNT_BANNED.
func RequireActive(status AccountStatus) Decision {
	if IsAccountActive(status) {
		return Allowed
	}
	if status == StatusSuspended {
		return Decision{Code: shared.CodeAccountSuspended}
	}
	return Decision{Code: shared.CodeAccountBanned}
}
