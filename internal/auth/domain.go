package auth

import (
	"time"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// Principal is the result of a successful credential match.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
	Role        rbac.Role
	Status      rbac.AccountStatus
}

// Actor returns the authorization view of the principal.
func (p Principal) Actor() rbac.Actor {
	return rbac.Actor{ID: p.ID, Role: p.Role, Status: p.Status}
}

func principalFrom(a *accounts.Account) Principal {
	return Principal{ID: a.ID, Email: a.Email, DisplayName: a.Name, Role: a.Role, Status: a.Status}
}

// Session is a minted token plus the principal it was minted for.
type Session struct {
	Principal Principal
	Token     claims.Token
}

// ExpiresAt returns the absolute token expiry.
func (s Session) ExpiresAt() time.Time {
	return s.Token.Claims.ExpiresAt
}

// LoginInput carries sign-in credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput carries a new account's details.
type RegisterInput struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}
