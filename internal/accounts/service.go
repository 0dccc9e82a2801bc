package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	deletedByUserReason = "Account deleted by user"
)

// ListingPort hides a banned seller's storefront.
type ListingPort interface {
	HideActiveBySeller(ctx context.Context, sellerID string) (int, error)
}

// NotifierPort enqueues account notices.
type NotifierPort interface {
	Notify(ctx context.Context, notice Notice) error
}

// PasswordHasher hashes and verifies local credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Service implements account administration and self-service profile flows.
type Service struct {
	repo          Repository
	audit         shared.AuditSink
	invalidations shared.InvalidationSink
	listings      ListingPort
	notifier      NotifierPort
	hasher        PasswordHasher
	validate      *validator.Validate
	logger        *slog.Logger
}

// NewService wires the account service. listings and notifier may be nil.
func NewService(repo Repository, audit shared.AuditSink, invalidations shared.InvalidationSink, listings ListingPort, notifier NotifierPort, hasher PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:          repo,
		audit:         audit,
		invalidations: invalidations,
		listings:      listings,
		notifier:      notifier,
		hasher:        hasher,
		validate:      shared.NewValidator(),
		logger:        logger,
	}
}

// authorize re-reads the caller from the store so a stale token cannot carry
// a revoked role or status into a privileged operation.
func (s *Service) authorize(ctx context.Context, caller rbac.Actor, perm rbac.Permission) (rbac.Actor, error) {
	return rbac.CurrentWith(ctx, s.repo, caller, perm)
}

func (s *Service) loadTarget(ctx context.Context, op, id string) (*Account, error) {
	target, err := s.repo.FindAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("accounts: %s: %w", op, err)
	}
	return target, nil
}

// Suspend moves a target account to SUSPENDED. ExpiresAt is informational.
func (s *Service) Suspend(ctx context.Context, caller rbac.Actor, input SuspendInput) error {
	actor, err := s.authorize(ctx, caller, rbac.PermModerationSuspendUsers)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	target, err := s.loadTarget(ctx, "suspend", input.UserID)
	if err != nil {
		return err
	}
	if err := peerRule(actor.Role, target.Role, shared.ErrCannotSuspendAdmin, shared.ErrCannotSuspendSuperAdmin); err != nil {
		return err
	}

	change := StatusChange{Status: rbac.StatusSuspended, Reason: input.Reason, Until: input.ExpiresAt}
	if err := s.repo.UpdateAccountStatus(ctx, target.ID, change); err != nil {
		return fmt.Errorf("accounts: suspend: %w", err)
	}
	meta := map[string]any{"reason": input.Reason}
	if input.ExpiresAt != nil {
		meta["expiresAt"] = input.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if err := s.record(ctx, actor, target.ID, shared.InvalidationSuspended, shared.AuditUserSuspended, meta); err != nil {
		return fmt.Errorf("accounts: suspend: %w", err)
	}
	s.notify(ctx, Notice{
		To:      target.Email,
		Subject: "Your account has been suspended",
		Body:    "Reason: " + input.Reason,
	})
	return nil
}

// Ban moves a target account to BANNED and hides their active listings.
func (s *Service) Ban(ctx context.Context, caller rbac.Actor, input BanInput) error {
	actor, err := s.authorize(ctx, caller, rbac.PermModerationSuspendUsers)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	target, err := s.loadTarget(ctx, "ban", input.UserID)
	if err != nil {
		return err
	}
	if err := peerRule(actor.Role, target.Role, shared.ErrCannotBanAdmin, shared.ErrCannotBanSuperAdmin); err != nil {
		return err
	}

	if err := s.repo.UpdateAccountStatus(ctx, target.ID, StatusChange{Status: rbac.StatusBanned, Reason: input.Reason}); err != nil {
		return fmt.Errorf("accounts: ban: %w", err)
	}
	meta := map[string]any{"reason": input.Reason}
	if s.listings != nil {
		hidden, err := s.listings.HideActiveBySeller(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("accounts: ban: hide listings: %w", err)
		}
		meta["listingsHidden"] = hidden
	}
	if err := s.record(ctx, actor, target.ID, shared.InvalidationBanned, shared.AuditUserBanned, meta); err != nil {
		return fmt.Errorf("accounts: ban: %w", err)
	}
	s.notify(ctx, Notice{
		To:      target.Email,
		Subject: "Your account has been banned",
		Body:    "Reason: " + input.Reason,
	})
	return nil
}

// Reactivate returns a SUSPENDED or BANNED account to ACTIVE.
func (s *Service) Reactivate(ctx context.Context, caller rbac.Actor, userID string) error {
	actor, err := s.authorize(ctx, caller, rbac.PermModerationSuspendUsers)
	if err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return &shared.ValidationError{Fields: map[string]string{"userId": "is required"}}
	}
	target, err := s.loadTarget(ctx, "reactivate", userID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateAccountStatus(ctx, target.ID, StatusChange{Status: rbac.StatusActive}); err != nil {
		return fmt.Errorf("accounts: reactivate: %w", err)
	}
	meta := map[string]any{"previousStatus": string(target.Status)}
	if err := s.record(ctx, actor, target.ID, shared.InvalidationReactivated, shared.AuditUserReactivated, meta); err != nil {
		return fmt.Errorf("accounts: reactivate: %w", err)
	}
	s.notify(ctx, Notice{
		To:      target.Email,
		Subject: "Your account has been reactivated",
		Body:    "You can sign in again.",
	})
	return nil
}

// ChangeRole assigns a new role to another account.
func (s *Service) ChangeRole(ctx context.Context, caller rbac.Actor, input ChangeRoleInput) error {
	actor, err := s.authorize(ctx, caller, rbac.PermAdminCreateAdmins)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	if input.UserID == actor.ID {
		return shared.ErrCannotChangeOwnRole
	}
	target, err := s.loadTarget(ctx, "change role", input.UserID)
	if err != nil {
		return err
	}
	role := rbac.Role(input.Role)
	if err := s.repo.UpdateAccountRole(ctx, target.ID, role); err != nil {
		return fmt.Errorf("accounts: change role: %w", err)
	}
	meta := map[string]any{"previousRole": string(target.Role), "newRole": string(role)}
	if err := s.record(ctx, actor, target.ID, shared.InvalidationRoleChanged(string(role)), shared.AuditUserRoleChanged, meta); err != nil {
		return fmt.Errorf("accounts: change role: %w", err)
	}
	return nil
}

// ListUsers returns a filtered page of accounts.
func (s *Service) ListUsers(ctx context.Context, caller rbac.Actor, filter ListFilter) (ListResult, error) {
	if _, err := s.authorize(ctx, caller, rbac.PermAdminManageUsers); err != nil {
		return ListResult{}, err
	}
	fields := map[string]string{}
	if filter.Role != "" && !filter.Role.Valid() {
		fields["role"] = "is not a known role"
	}
	if filter.Status != "" && !filter.Status.Valid() {
		fields["status"] = "is not a known status"
	}
	if len(fields) > 0 {
		return ListResult{}, &shared.ValidationError{Fields: fields}
	}
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)

	rows, total, err := s.repo.ListAccounts(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("accounts: list: %w", err)
	}
	return ListResult{Accounts: rows, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// ExportUsers returns every account and records the export.
func (s *Service) ExportUsers(ctx context.Context, caller rbac.Actor) ([]Account, error) {
	actor, err := s.authorize(ctx, caller, rbac.PermAdminExportData)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ExportAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounts: export: %w", err)
	}
	entry := shared.AuditLog{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     shared.AuditDataExported,
		TargetType: auditTargetUser,
		TargetID:   "all",
		Meta:       map[string]any{"exportedCount": len(rows)},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("accounts: export: audit: %w", err)
	}
	return rows, nil
}

// Stats returns account counts per role and status.
func (s *Service) Stats(ctx context.Context, caller rbac.Actor) (Stats, error) {
	if _, err := s.authorize(ctx, caller, rbac.PermAdminViewAnalytics); err != nil {
		return Stats{}, err
	}
	stats, err := s.repo.CountByRoleStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("accounts: stats: %w", err)
	}
	return stats, nil
}

// ListExpiredSuspensions reports suspended accounts past their informational
// expiry. Nothing is reactivated.
func (s *Service) ListExpiredSuspensions(ctx context.Context, now time.Time) ([]Account, error) {
	rows, err := s.repo.ListExpiredSuspensions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("accounts: expired suspensions: %w", err)
	}
	return rows, nil
}

const auditTargetUser = "User"

// record appends the invalidation then the audit entry. Both are required for
// the mutation to report success.
func (s *Service) record(ctx context.Context, actor rbac.Actor, targetID, reason, action string, meta map[string]any) error {
	if err := s.invalidations.Record(ctx, targetID, reason); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	entry := shared.AuditLog{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TargetType: auditTargetUser,
		TargetID:   targetID,
		Meta:       meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, notice Notice) {
	if s.notifier == nil || notice.To == "" {
		return
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		s.logger.Warn("account notice not queued", slog.String("subject", notice.Subject), slog.Any("error", err))
	}
}

// peerRule refuses actions by an ADMIN on staff, and by a SUPER_ADMIN on a
// SUPER_ADMIN.
func peerRule(actor, target rbac.Role, onStaff, onSuperAdmin error) error {
	switch {
	case actor == rbac.RoleAdmin && (target == rbac.RoleAdmin || target == rbac.RoleSuperAdmin):
		return onStaff
	case actor == rbac.RoleSuperAdmin && target == rbac.RoleSuperAdmin:
		return onSuperAdmin
	}
	return nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return page, limit
}
