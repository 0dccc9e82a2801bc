// Package claims mints, parses and refreshes the short-lived signed token
// carrying an account's role and status.
package claims

import (
	"time"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// Claims is an immutable snapshot of a subject's role and status. A refresh
// produces a new value; existing values are never patched.
type Claims struct {
	ID        string
	Subject   string
	Role      rbac.Role
	Status    rbac.AccountStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Actor converts the claims into the principal used by authorization checks.
func (c Claims) Actor() rbac.Actor {
	return rbac.Actor{ID: c.Subject, Role: c.Role, Status: c.Status}
}

// Age reports how long ago the claims were issued.
func (c Claims) Age(now time.Time) time.Duration {
	return now.Sub(c.IssuedAt)
}

// Token is a signed claims value ready to hand to a client.
type Token struct {
	Value  string
	Claims Claims
}
