package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// GetProfile returns the caller's own account.
func (s *Service) GetProfile(ctx context.Context, caller rbac.Actor) (*Account, error) {
	actor, err := s.authorize(ctx, caller, rbac.PermProfileViewOwn)
	if err != nil {
		return nil, err
	}
	return s.loadTarget(ctx, "get profile", actor.ID)
}

// UpdateProfile changes the caller's display name.
func (s *Service) UpdateProfile(ctx context.Context, caller rbac.Actor, input ProfileInput) (*Account, error) {
	actor, err := s.authorize(ctx, caller, rbac.PermProfileEditOwn)
	if err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateName(ctx, actor.ID, input.Name); err != nil {
		return nil, fmt.Errorf("accounts: update profile: %w", err)
	}
	return s.loadTarget(ctx, "update profile", actor.ID)
}

// ChangePassword replaces the caller's local credential after verifying the
// current one.
func (s *Service) ChangePassword(ctx context.Context, caller rbac.Actor, input ChangePasswordInput) error {
	actor, err := s.authorize(ctx, caller, rbac.PermProfileEditOwn)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	account, err := s.loadTarget(ctx, "change password", actor.ID)
	if err != nil {
		return err
	}
	if !account.HasPassword() {
		return shared.ErrNoPasswordSet
	}
	if !s.hasher.Verify(account.PasswordHash, input.CurrentPassword) {
		return shared.ErrInvalidCurrentPassword
	}
	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("accounts: change password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, actor.ID, hash); err != nil {
		return fmt.Errorf("accounts: change password: %w", err)
	}
	return nil
}

// DeleteAccount soft-deletes the caller by banning their own account.
func (s *Service) DeleteAccount(ctx context.Context, caller rbac.Actor) error {
	actor, err := s.authorize(ctx, caller, rbac.PermProfileDeleteOwn)
	if err != nil {
		return err
	}
	change := StatusChange{Status: rbac.StatusBanned, Reason: deletedByUserReason}
	if err := s.repo.UpdateAccountStatus(ctx, actor.ID, change); err != nil {
		return fmt.Errorf("accounts: delete: %w", err)
	}
	if err := s.record(ctx, actor, actor.ID, shared.InvalidationDeleted, shared.AuditAccountDeleted, nil); err != nil {
		return fmt.Errorf("accounts: delete: %w", err)
	}
	return nil
}
