package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gadgetbay/gadgetbay/internal/listings"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	idempotencyModule = "orders.create"
)

// ListingPort resolves a listing that can currently be bought.
type ListingPort interface {
	Available(ctx context.Context, id string) (*listings.Listing, error)
}

// IdempotencyPort claims request keys so a retried create is not applied twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Service implements the order lifecycle.
type Service struct {
	repo        Repository
	actors      rbac.ActorSource
	listings    ListingPort
	idempotency IdempotencyPort
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewService wires the order service. idempotency may be nil.
func NewService(repo Repository, actors rbac.ActorSource, listings ListingPort, idempotency IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		actors:      actors,
		listings:    listings,
		idempotency: idempotency,
		validate:    shared.NewValidator(),
		logger:      logger,
	}
}

// Create places a PENDING order for an ACTIVE listing. A non-empty key makes
// the call idempotent: a replay returns DUPLICATE_REQUEST.
func (s *Service) Create(ctx context.Context, caller rbac.Actor, key string, input CreateInput) (*Order, error) {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermOrderCreate)
	if err != nil {
		return nil, err
	}
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	if err := shared.Validate(s.validate, input); err != nil {
		return nil, err
	}
	listing, err := s.listings.Available(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if rbac.IsOwner(actor.ID, listing.SellerID) {
		return nil, shared.ErrCannotBuyOwnListing
	}

	claimed := false
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrDuplicateRequest) {
				return nil, shared.ErrDuplicateRequest
			}
			return nil, fmt.Errorf("orders: create: idempotency: %w", err)
		}
		claimed = true
	}
	order, err := s.repo.CreateOrder(ctx, NewOrder{
		BuyerID:         actor.ID,
		SellerID:        listing.SellerID,
		ListingID:       listing.ID,
		TotalCents:      listing.PriceCents,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
	})
	if err != nil {
		if claimed {
			if derr := s.idempotency.Delete(ctx, key, idempotencyModule); derr != nil {
				s.logger.Warn("idempotency key not released", slog.String("key", key), slog.Any("error", derr))
			}
		}
		return nil, fmt.Errorf("orders: create: %w", err)
	}
	return order, nil
}

// Cancel cancels an order. Buyers may cancel their own while it is PENDING
// or CONFIRMED; staff may cancel any order in any state.
func (s *Service) Cancel(ctx context.Context, caller rbac.Actor, id string, input CancelInput) error {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	order, err := s.load(ctx, "cancel", id)
	if err != nil {
		return err
	}
	if !actor.Can(order.BuyerID, rbac.OrderCancel) {
		return shared.ErrInsufficientPermissions
	}
	if !rbac.HasPermission(actor.Role, rbac.PermOrderCancelAny) && !order.Status.Cancellable() {
		return shared.ErrOrderCannotBeCancelled
	}
	if err := s.repo.ApplyChange(ctx, order.ID, Change{Status: StatusCancelled, CancelReason: input.Reason}); err != nil {
		return fmt.Errorf("orders: cancel: %w", err)
	}
	return nil
}

// UpdateStatus lets the seller of an order, or staff, move it along.
func (s *Service) UpdateStatus(ctx context.Context, caller rbac.Actor, id string, input StatusInput) error {
	actor, err := s.active(ctx, caller)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	order, err := s.load(ctx, "update status", id)
	if err != nil {
		return err
	}
	if !actor.Can(order.SellerID, rbac.OrderUpdateStatus) {
		return shared.ErrInsufficientPermissions
	}
	change := Change{Status: Status(input.Status), TrackingNumber: input.TrackingNumber, TrackingURL: input.TrackingURL}
	if err := s.repo.ApplyChange(ctx, order.ID, change); err != nil {
		return fmt.Errorf("orders: update status: %w", err)
	}
	return nil
}

// RequestRefund flags a delivered order for refund. Only the buyer may ask;
// there is no elevated path.
func (s *Service) RequestRefund(ctx context.Context, caller rbac.Actor, id string, input RefundInput) error {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermOrderRefundRequest)
	if err != nil {
		return err
	}
	if err := shared.Validate(s.validate, input); err != nil {
		return err
	}
	order, err := s.load(ctx, "refund", id)
	if err != nil {
		return err
	}
	if !rbac.IsOwner(actor.ID, order.BuyerID) {
		return shared.ErrInsufficientPermissions
	}
	if order.Status != StatusDelivered {
		return shared.ErrRefundOnlyForDelivered
	}
	if err := s.repo.ApplyChange(ctx, order.ID, Change{Status: StatusRefundRequested, RefundReason: input.Reason}); err != nil {
		return fmt.Errorf("orders: refund: %w", err)
	}
	return nil
}

// ListMine returns the caller's purchases.
func (s *Service) ListMine(ctx context.Context, caller rbac.Actor, page, limit int) (Page, error) {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermOrderViewOwn)
	if err != nil {
		return Page{}, err
	}
	return s.list(ctx, PartyBuyer, actor.ID, page, limit)
}

// ListSales returns orders placed on the caller's listings.
func (s *Service) ListSales(ctx context.Context, caller rbac.Actor, page, limit int) (Page, error) {
	actor, err := rbac.CurrentWith(ctx, s.actors, caller, rbac.PermOrderUpdateStatusOwn)
	if err != nil {
		return Page{}, err
	}
	return s.list(ctx, PartySeller, actor.ID, page, limit)
}

// HasDeliveredOrder reports whether buyerID received listingID.
func (s *Service) HasDeliveredOrder(ctx context.Context, buyerID, listingID string) (bool, error) {
	ok, err := s.repo.HasDeliveredOrder(ctx, buyerID, listingID)
	if err != nil {
		return false, fmt.Errorf("orders: delivered: %w", err)
	}
	return ok, nil
}

func (s *Service) list(ctx context.Context, party Party, actorID string, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, total, err := s.repo.ListOrders(ctx, party, actorID, page, limit)
	if err != nil {
		return Page{}, fmt.Errorf("orders: list: %w", err)
	}
	return Page{Orders: rows, Pagination: shared.NewPagination(page, limit, total)}, nil
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

func (s *Service) load(ctx context.Context, op, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.ErrOrderNotFound
	}
	o, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrOrderNotFound) {
			return nil, shared.ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: %s: %w", op, err)
	}
	return o, nil
}
