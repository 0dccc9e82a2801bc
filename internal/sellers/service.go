package sellers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	auditTargetApplication = "SellerApplication"
)

// Service implements seller onboarding and storefront management.
type Service struct {
	repo          Repository
	actors        rbac.ActorSource
	audit         shared.AuditSink
	invalidations shared.InvalidationSink
	notifier      accounts.NotifierPort
	validate      *validator.Validate
	logger        *slog.Logger
}

// NewService wires the seller service. notifier may be nil.
func NewService(repo Repository, actors rbac.ActorSource, audit shared.AuditSink, invalidations shared.InvalidationSink, notifier accounts.NotifierPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:          repo,
		actors:        actors,
		audit:         audit,
		invalidations: invalidations,
		notifier:      notifier,
		validate:      shared.NewValidator(),
		logger:        logger,
	}
}

// Submit files a seller application. Only active plain USER accounts may
// apply and only one application may be pending at a time.
func (s *Service) Submit(ctx context.Context, caller rbac.Actor, input SubmitInput) (*Application, error) {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return nil, err
	}
	if actor.Role != rbac.RoleUser {
		return nil, shared.ErrOnlyUsersCanApply
	}
	input.BusinessName = strings.TrimSpace(input.BusinessName)
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	pending, err := s.repo.HasPendingApplication(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("sellers: submit: %w", err)
	}
	if pending {
		return nil, shared.ErrApplicationAlreadyPending
	}
	id, err := s.repo.CreateApplication(ctx, actor.ID, input)
	if err != nil {
		if errors.Is(err, shared.ErrApplicationAlreadyPending) {
			return nil, shared.ErrApplicationAlreadyPending
		}
		return nil, fmt.Errorf("sellers: submit: %w", err)
	}
	app, err := s.repo.FindApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sellers: submit: %w", err)
	}
	return app, nil
}

// Review approves or rejects a pending application.
func (s *Service) Review(ctx context.Context, caller rbac.Actor, input ReviewInput) error {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermModerationApproveSellers)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	app, err := s.repo.FindApplication(ctx, input.ApplicationID)
	if err != nil {
		if errors.Is(err, shared.ErrApplicationNotFound) {
			return shared.ErrApplicationNotFound
		}
		return fmt.Errorf("sellers: review: %w", err)
	}
	if app.Status != ApplicationPending {
		return shared.ErrApplicationAlreadyReviewed
	}

	if input.Action == ActionApprove {
		return s.approve(ctx, actor, *app)
	}
	return s.reject(ctx, actor, *app, input.RejectionReason)
}

func (s *Service) approve(ctx context.Context, actor rbac.Actor, app Application) error {
	if err := s.repo.Approve(ctx, app, actor.ID); err != nil {
		if errors.Is(err, shared.ErrApplicationAlreadyReviewed) {
			return shared.ErrApplicationAlreadyReviewed
		}
		return fmt.Errorf("sellers: approve: %w", err)
	}
	if err := s.invalidations.Record(ctx, app.UserID, shared.InvalidationSellerApproved); err != nil {
		return fmt.Errorf("sellers: approve: invalidate: %w", err)
	}
	if err := s.record(ctx, actor, app.ID, shared.AuditSellerApproved, map[string]any{"userId": app.UserID}); err != nil {
		return fmt.Errorf("sellers: approve: %w", err)
	}
	s.notify(ctx, accounts.Notice{
		To:      app.ApplicantEmail,
		Subject: "Your seller application was approved",
		Body:    "You can now list items as " + app.BusinessName + ".",
	})
	return nil
}

func (s *Service) reject(ctx context.Context, actor rbac.Actor, app Application, reason string) error {
	if err := s.repo.Reject(ctx, app.ID, actor.ID, reason); err != nil {
		if errors.Is(err, shared.ErrApplicationAlreadyReviewed) {
			return shared.ErrApplicationAlreadyReviewed
		}
		return fmt.Errorf("sellers: reject: %w", err)
	}
	meta := map[string]any{"userId": app.UserID}
	if reason != "" {
		meta["reason"] = reason
	}
	if err := s.record(ctx, actor, app.ID, shared.AuditSellerRejected, meta); err != nil {
		return fmt.Errorf("sellers: reject: %w", err)
	}
	body := "Your application was not approved."
	if reason != "" {
		body += " Reason: " + reason
	}
	s.notify(ctx, accounts.Notice{To: app.ApplicantEmail, Subject: "Your seller application was reviewed", Body: body})
	return nil
}

// List returns a page of applications in one status, PENDING by default.
func (s *Service) List(ctx context.Context, caller rbac.Actor, filter ListFilter) (ListResult, error) {
	if _, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermModerationApproveSellers); err != nil {
		return ListResult{}, err
	}
	if filter.Status == "" {
		filter.Status = ApplicationPending
	}
	if !filter.Status.Valid() {
		return ListResult{}, &shared.ValidationError{Fields: map[string]string{"status": "is not a known status"}}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	rows, total, err := s.repo.ListApplications(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("sellers: list: %w", err)
	}
	return ListResult{Applications: rows, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// ApplicationStatus returns the caller's latest application, or nil when
// they never applied.
func (s *Service) ApplicationStatus(ctx context.Context, caller rbac.Actor) (*Application, error) {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.LatestApplication(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, shared.ErrApplicationNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("sellers: application status: %w", err)
	}
	return app, nil
}

// Profile returns the caller's storefront.
func (s *Service) Profile(ctx context.Context, caller rbac.Actor) (*Profile, error) {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindProfile(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, shared.ErrSellerProfileNotFound) {
			return nil, shared.ErrSellerProfileNotFound
		}
		return nil, fmt.Errorf("sellers: profile: %w", err)
	}
	return p, nil
}

// UpdateProfile edits the caller's storefront. Only SELLER and SUPER_ADMIN
// accounts have one.
func (s *Service) UpdateProfile(ctx context.Context, caller rbac.Actor, input ProfileInput) (*Profile, error) {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !rbac.IsOneOfRoles(actor.Role, []rbac.Role{rbac.RoleSeller, rbac.RoleSuperAdmin}) {
		return nil, shared.ErrSellerOnly
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateProfile(ctx, actor.ID, input)
	if err != nil {
		if errors.Is(err, shared.ErrSellerProfileNotFound) {
			return nil, shared.ErrSellerProfileNotFound
		}
		return nil, fmt.Errorf("sellers: update profile: %w", err)
	}
	return p, nil
}

func (s *Service) active(ctx context.Context, caller rbac.Actor) (rbac.Actor, error) {
	actor, err := rbac.Current(ctx, s.actors, caller)
	if err != nil {
		return rbac.Actor{}, err
	}
	if d := rbac.RequireActive(actor.Status); !d.Authorized {
		return rbac.Actor{}, d.Err()
	}
	return actor, nil
}

func (s *Service) record(ctx context.Context, actor rbac.Actor, applicationID, action string, meta map[string]any) error {
	entry := shared.AuditLog{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TargetType: auditTargetApplication,
		TargetID:   applicationID,
		Meta:       meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, notice accounts.Notice) {
	if s.notifier == nil || notice.To == "" {
		return
	}
	if err := s.notifier.Notify(ctx, notice); err != nil {
		s.logger.Warn("seller notice not queued", slog.String("subject", notice.Subject), slog.Any("error", err))
	}
}
