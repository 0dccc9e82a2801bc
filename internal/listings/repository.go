package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Repository is the listing store.
type Repository interface {
	FindListing(ctx context.Context, id string) (*Listing, error)
	CreateListing(ctx context.Context, sellerID string, in CreateInput) (*Listing, error)
	UpdateListing(ctx context.Context, id string, in UpdateInput) (*Listing, error)
	UpdateListingStatus(ctx context.Context, id string, status Status) error
	HideActiveBySeller(ctx context.Context, sellerID string) (int, error)
	BrowseListings(ctx context.Context, filter BrowseFilter) ([]Listing, int, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindListing returns shared.ErrListingNotFound when no row matches.
func (r *PGRepository) FindListing(ctx context.Context, id string) (*Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx, qFindByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// CreateListing inserts an ACTIVE listing.
func (r *PGRepository) CreateListing(ctx context.Context, sellerID string, in CreateInput) (*Listing, error) {
	return scanListing(r.pool.QueryRow(ctx, qInsert,
		uuid.NewString(), sellerID, in.Title, in.Description, in.Model, in.Condition, in.PriceCents, in.Images, in.Warranty))
}

// UpdateListing writes the non-nil fields of in.
func (r *PGRepository) UpdateListing(ctx context.Context, id string, in UpdateInput) (*Listing, error) {
	var images []string
	if len(in.Images) > 0 {
		images = in.Images
	}
	l, err := scanListing(r.pool.QueryRow(ctx, qUpdate, id, in.Title, in.Description, in.Model, in.Condition, in.PriceCents, images, in.Warranty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrListingNotFound
		}
		return nil, err
	}
	return l, nil
}

// UpdateListingStatus writes the status.
func (r *PGRepository) UpdateListingStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, qUpdateStatus, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrListingNotFound
	}
	return nil
}

// HideActiveBySeller hides every ACTIVE listing of sellerID and returns how
// many were hidden.
func (r *PGRepository) HideActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	tag, err := r.pool.Exec(ctx, qHideActiveBySeller, sellerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// BrowseListings returns one page of ACTIVE listings and the total count.
func (r *PGRepository) BrowseListings(ctx context.Context, filter BrowseFilter) ([]Listing, int, error) {
	where, args := buildBrowseWhere(filter)
	offset := (filter.Page - 1) * filter.Limit

	var (
		rows  []Listing
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := `SELECT ` + listingColumns + ` FROM listings` + where + orderClause(filter) +
			fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		res, err := r.pool.Query(gctx, q, append(append([]any{}, args...), filter.Limit, offset)...)
		if err != nil {
			return err
		}
		defer res.Close()
		for res.Next() {
			l, err := scanListing(res)
			if err != nil {
				return err
			}
			rows = append(rows, *l)
		}
		return res.Err()
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func buildBrowseWhere(filter BrowseFilter) (string, []any) {
	clauses := []string{"status = 'ACTIVE'"}
	var args []any
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR model ILIKE $%d)", len(args), len(args)))
	}
	if filter.Condition != "" {
		args = append(args, string(filter.Condition))
		clauses = append(clauses, fmt.Sprintf("condition = $%d", len(args)))
	}
	if filter.MinCents > 0 {
		args = append(args, filter.MinCents)
		clauses = append(clauses, fmt.Sprintf("price_cents >= $%d", len(args)))
	}
	if filter.MaxCents > 0 {
		args = append(args, filter.MaxCents)
		clauses = append(clauses, fmt.Sprintf("price_cents <= $%d", len(args)))
	}
	if filter.SellerID != "" {
		args = append(args, filter.SellerID)
		clauses = append(clauses, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderClause only ever emits whitelisted identifiers.
func orderClause(filter BrowseFilter) string {
	col := "created_at"
	if filter.SortBy == "price" {
		col = "price_cents"
	}
	dir := "DESC"
	if filter.SortOrder == "asc" {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir
}

func scanListing(row pgx.Row) (*Listing, error) {
	var (
		l         Listing
		condition string
		status    string
	)
	if err := row.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Model, &condition, &l.PriceCents,
		&l.Images, &l.Warranty, &status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Condition = Condition(condition)
	l.Status = Status(status)
	return &l, nil
}

var _ Repository = (*PGRepository)(nil)
