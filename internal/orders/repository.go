package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Party selects which side of an order a listing query matches on.
type Party string

const (
	PartyBuyer  Party = "buyer_id"
	PartySeller Party = "seller_id"
)

// Repository is the order store.
type Repository interface {
	FindOrder(ctx context.Context, id string) (*Order, error)
	CreateOrder(ctx context.Context, in NewOrder) (*Order, error)
	ApplyChange(ctx context.Context, id string, change Change) error
	ListOrders(ctx context.Context, party Party, actorID string, page, limit int) ([]Order, int, error)
	HasDeliveredOrder(ctx context.Context, buyerID, listingID string) (bool, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindOrder returns shared.ErrOrderNotFound when no row matches.
func (r *PGRepository) FindOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, qFindByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// CreateOrder inserts a PENDING order.
func (r *PGRepository) CreateOrder(ctx context.Context, in NewOrder) (*Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, qInsert,
		uuid.NewString(), in.BuyerID, in.SellerID, in.ListingID, in.TotalCents, in.ShippingAddress, in.Notes))
}

// ApplyChange writes a status transition.
func (r *PGRepository) ApplyChange(ctx context.Context, id string, change Change) error {
	tag, err := r.pool.Exec(ctx, qApplyChange, id, string(change.Status),
		change.TrackingNumber, change.TrackingURL, change.CancelReason, change.RefundReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrOrderNotFound
	}
	return nil
}

// ListOrders pages through the orders where actorID is the given party.
func (r *PGRepository) ListOrders(ctx context.Context, party Party, actorID string, page, limit int) ([]Order, int, error) {
	if party != PartyBuyer && party != PartySeller {
		return nil, 0, fmt.Errorf("orders: unknown party %q", party)
	}
	where := ` WHERE ` + string(party) + ` = $1`
	var (
		rows  []Order
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.pool.Query(gctx, `SELECT `+orderColumns+` FROM orders`+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			actorID, limit, (page-1)*limit)
		if err != nil {
			return err
		}
		defer res.Close()
		for res.Next() {
			o, err := scanOrder(res)
			if err != nil {
				return err
			}
			rows = append(rows, *o)
		}
		return res.Err()
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM orders`+where, actorID).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// HasDeliveredOrder reports whether buyerID received listingID.
func (r *PGRepository) HasDeliveredOrder(ctx context.Context, buyerID, listingID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, qHasDelivered, buyerID, listingID).Scan(&ok)
	return ok, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
	)
	if err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.ListingID, &o.TotalCents, &status, &o.ShippingAddress, &o.Notes,
		&o.TrackingNumber, &o.TrackingURL, &o.CancelReason, &o.RefundReason, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

var _ Repository = (*PGRepository)(nil)
