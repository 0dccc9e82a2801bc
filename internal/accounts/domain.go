package accounts

import (
	"time"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Account is the system-of-record row for a principal.
type Account struct {
	ID              string
	Email           string
	Name            string
	PasswordHash    string
	Role            rbac.Role
	Status          rbac.AccountStatus
	SuspendedReason string
	SuspendedUntil  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Actor returns the authorization view of the account.
func (a Account) Actor() rbac.Actor {
	return rbac.Actor{ID: a.ID, Role: a.Role, Status: a.Status}
}

// HasPassword reports whether the account has a local credential.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// NewAccount carries the fields needed to register an account.
type NewAccount struct {
	Email        string
	Name         string
	PasswordHash string
}

// StatusChange is written by suspend, ban, reactivate and self-deletion.
type StatusChange struct {
	Status rbac.AccountStatus
	Reason string
	Until  *time.Time
}

// ListFilter narrows ListAccounts.
type ListFilter struct {
	Search string
	Role   rbac.Role
	Status rbac.AccountStatus
	Page   int
	Limit  int
}

// ListResult is a page of accounts.
type ListResult struct {
	Accounts   []Account
	Pagination shared.Pagination
}

// Stats counts accounts by role and status.
type Stats struct {
	Total    int                        `json:"total"`
	ByRole   map[rbac.Role]int          `json:"byRole"`
	ByStatus map[rbac.AccountStatus]int `json:"byStatus"`
}

// Notice is an account notification handed to the mail queue.
type Notice struct {
	To      string
	Subject string
	Body    string
}

// SuspendInput is the payload for Suspend.
type SuspendInput struct {
	UserID    string     `json:"userId" validate:"required"`
	Reason    string     `json:"reason" validate:"required,min=5,max=500"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// BanInput is the payload for Ban.
type BanInput struct {
	UserID string `json:"userId" validate:"required"`
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// ChangeRoleInput is the payload for ChangeRole.
type ChangeRoleInput struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=USER SELLER ADMIN SUPER_ADMIN"`
}

// ProfileInput is the payload for UpdateProfile.
type ProfileInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// ChangePasswordInput is the payload for ChangePassword.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}
