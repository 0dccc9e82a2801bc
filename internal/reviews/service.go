package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// PurchasePort answers whether a buyer received a listing.
type PurchasePort interface {
	HasDeliveredOrder(ctx context.Context, buyerID, listingID string) (bool, error)
}

// Service implements buyer reviews and their moderation.
type Service struct {
	repo      Repository
	actors    rbac.ActorSource
	purchases PurchasePort
	validate  *validator.Validate
}

// NewService wires the review service.
func NewService(repo Repository, actors rbac.ActorSource, purchases PurchasePort) *Service {
	return &Service{repo: repo, actors: actors, purchases: purchases, validate: shared.NewValidator()}
}

// Create records a review for a listing the caller has received.
func (s *Service) Create(ctx context.Context, caller rbac.Actor, input CreateInput) (*Review, error) {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermReviewCreate)
	if err != nil {
		return nil, err
	}
	input.Comment = strings.TrimSpace(input.Comment)
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	bought, err := s.purchases.HasDeliveredOrder(ctx, actor.ID, input.ListingID)
	if err != nil {
		return nil, fmt.Errorf("reviews: create: %w", err)
	}
	if !bought {
		return nil, shared.ErrMustPurchaseBeforeReview
	}
	rev, err := s.repo.CreateReview(ctx, actor.ID, input)
	if err != nil {
		if errors.Is(err, shared.ErrReviewAlreadyExists) {
			return nil, shared.ErrReviewAlreadyExists
		}
		return nil, fmt.Errorf("reviews: create: %w", err)
	}
	return rev, nil
}

// Update edits a review. Authors may edit their own; moderators may edit any.
func (s *Service) Update(ctx context.Context, caller rbac.Actor, id string, input UpdateInput) (*Review, error) {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	target, err := s.load(ctx, actor, "update", id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(target.UserID, rbac.ReviewEdit) {
		return nil, shared.ErrInsufficientPermissions
	}
	rev, err := s.repo.UpdateReview(ctx, target.ID, input)
	if err != nil {
		return nil, fmt.Errorf("reviews: update: %w", err)
	}
	return rev, nil
}

// Delete hides a review.
func (s *Service) Delete(ctx context.Context, caller rbac.Actor, id string) error {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return err
	}
	target, err := s.load(ctx, actor, "delete", id)
	if err != nil {
		return err
	}
	if !actor.Can(target.UserID, rbac.ReviewDelete) {
		return shared.ErrInsufficientPermissions
	}
	if err := s.repo.HideReview(ctx, target.ID); err != nil {
		return fmt.Errorf("reviews: delete: %w", err)
	}
	return nil
}

// ForListing returns the visible reviews of a listing.
func (s *Service) ForListing(ctx context.Context, listingID string) ([]Review, error) {
	rows, err := s.repo.ListVisible(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("reviews: list: %w", err)
	}
	return rows, nil
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

// load hides already-hidden reviews from everyone but moderators.
func (s *Service) load(ctx context.Context, actor rbac.Actor, op, id string) (*Review, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.ErrReviewNotFound
	}
	rev, err := s.repo.FindReview(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrReviewNotFound) {
			return nil, shared.ErrReviewNotFound
		}
		return nil, fmt.Errorf("reviews: %s: %w", op, err)
	}
	if !rev.Visible && !rbac.HasPermission(actor.Role, rbac.PermReviewModerateAny) {
		return nil, shared.ErrReviewNotFound
	}
	return rev, nil
}
