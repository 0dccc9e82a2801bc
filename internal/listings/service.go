package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const (
	defaultBrowseLimit = 20
	maxBrowseLimit     = 50
)

// Service implements listing management and public browsing.
type Service struct {
	repo     Repository
	actors   rbac.ActorSource
	validate *validator.Validate
}

// NewService wires the listing service.
func NewService(repo Repository, actors rbac.ActorSource) *Service {
	return &Service{repo: repo, actors: actors, validate: shared.NewValidator()}
}

// Create publishes a new listing owned by the caller.
func (s *Service) Create(ctx context.Context, caller rbac.Actor, input CreateInput) (*Listing, error) {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermListingCreate)
	if err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	l, err := s.repo.CreateListing(ctx, actor.ID, input)
	if err != nil {
		return nil, fmt.Errorf("listings: create: %w", err)
	}
	return l, nil
}

// Update edits a listing. Sellers may edit their own; staff may edit any.
func (s *Service) Update(ctx context.Context, caller rbac.Actor, id string, input UpdateInput) (*Listing, error) {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	target, err := s.load(ctx, "update", id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(target.SellerID, rbac.ListingEdit) {
		return nil, shared.ErrInsufficientPermissions
	}
	l, err := s.repo.UpdateListing(ctx, target.ID, input)
	if err != nil {
		return nil, fmt.Errorf("listings: update: %w", err)
	}
	return l, nil
}

// UpdateStatus moves a listing between ACTIVE, PAUSED and SOLD.
func (s *Service) UpdateStatus(ctx context.Context, caller rbac.Actor, id string, input StatusInput) error {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	target, err := s.load(ctx, "update status", id)
	if err != nil {
		return err
	}
	if !actor.Can(target.SellerID, rbac.ListingEdit) {
		return shared.ErrInsufficientPermissions
	}
	if err := s.repo.UpdateListingStatus(ctx, target.ID, Status(input.Status)); err != nil {
		return fmt.Errorf("listings: update status: %w", err)
	}
	return nil
}

// Delete soft-deletes a listing.
func (s *Service) Delete(ctx context.Context, caller rbac.Actor, id string) error {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return err
	}
	target, err := s.load(ctx, "delete", id)
	if err != nil {
		return err
	}
	if !actor.Can(target.SellerID, rbac.ListingDelete) {
		return shared.ErrInsufficientPermissions
	}
	if err := s.repo.UpdateListingStatus(ctx, target.ID, StatusDeleted); err != nil {
		return fmt.Errorf("listings: delete: %w", err)
	}
	return nil
}

// Get returns a listing for public display. Deleted and moderated listings
// are reported as missing.
func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	l, err := s.load(ctx, "get", id)
	if err != nil {
		return nil, err
	}
	if l.Status == StatusHidden {
		return nil, shared.ErrListingNotFound
	}
	return l, nil
}

// Browse returns a page of ACTIVE listings.
func (s *Service) Browse(ctx context.Context, filter BrowseFilter) (Page, error) {
	if filter.Condition != "" && !validCondition(filter.Condition) {
		return Page{}, &shared.ValidationError{Fields: map[string]string{"condition": "is not a known condition"}}
	}
	if filter.MinCents > 0 && filter.MaxCents > 0 && filter.MinCents > filter.MaxCents {
		return Page{}, &shared.ValidationError{Fields: map[string]string{"minPrice": "must not exceed maxPrice"}}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultBrowseLimit
	}
	if filter.Limit > maxBrowseLimit {
		filter.Limit = maxBrowseLimit
	}
	rows, total, err := s.repo.BrowseListings(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("listings: browse: %w", err)
	}
	return Page{Listings: rows, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// HideActiveBySeller hides a banned seller's storefront.
func (s *Service) HideActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	n, err := s.repo.HideActiveBySeller(ctx, sellerID)
	if err != nil {
		return 0, fmt.Errorf("listings: hide: %w", err)
	}
	return n, nil
}

// Available loads a listing for ordering. Anything other than ACTIVE is
// LISTING_NOT_AVAILABLE.
func (s *Service) Available(ctx context.Context, id string) (*Listing, error) {
	l, err := s.repo.FindListing(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrListingNotFound) {
			return nil, shared.ErrListingNotAvailable
		}
		return nil, fmt.Errorf("listings: available: %w", err)
	}
	if !l.Available() {
		return nil, shared.ErrListingNotAvailable
	}
	return l, nil
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

// load treats DELETED rows as absent.
func (s *Service) load(ctx context.Context, op, id string) (*Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.ErrListingNotFound
	}
	l, err := s.repo.FindListing(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrListingNotFound) {
			return nil, shared.ErrListingNotFound
		}
		return nil, fmt.Errorf("listings: %s: %w", op, err)
	}
	if l.Status == StatusDeleted {
		return nil, shared.ErrListingNotFound
	}
	return l, nil
}

func validCondition(c Condition) bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionRefurbished:
		return true
	}
	return false
}
