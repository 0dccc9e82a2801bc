package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Repository is the review store.
type Repository interface {
	FindReview(ctx context.Context, id string) (*Review, error)
	CreateReview(ctx context.Context, userID string, in CreateInput) (*Review, error)
	UpdateReview(ctx context.Context, id string, in UpdateInput) (*Review, error)
	HideReview(ctx context.Context, id string) error
	ListVisible(ctx context.Context, listingID string) ([]Review, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindReview returns shared.ErrReviewNotFound when no row matches.
func (r *PGRepository) FindReview(ctx context.Context, id string) (*Review, error) {
	rev, err := scanReview(r.pool.QueryRow(ctx, qFindByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrReviewNotFound
		}
		return nil, err
	}
	return rev, nil
}

// CreateReview inserts a visible review. The (user, listing) pair is unique.
func (r *PGRepository) CreateReview(ctx context.Context, userID string, in CreateInput) (*Review, error) {
	rev, err := scanReview(r.pool.QueryRow(ctx, qInsert, uuid.NewString(), userID, in.ListingID, in.Rating, in.Comment))
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return nil, shared.ErrReviewAlreadyExists
		}
		return nil, err
	}
	return rev, nil
}

// UpdateReview writes the non-nil fields of in.
func (r *PGRepository) UpdateReview(ctx context.Context, id string, in UpdateInput) (*Review, error) {
	rev, err := scanReview(r.pool.QueryRow(ctx, qUpdate, id, in.Rating, in.Comment))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrReviewNotFound
		}
		return nil, err
	}
	return rev, nil
}

// HideReview soft-deletes a review.
func (r *PGRepository) HideReview(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, qHide, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrReviewNotFound
	}
	return nil
}

// ListVisible returns a listing's visible reviews, newest first.
func (r *PGRepository) ListVisible(ctx context.Context, listingID string) ([]Review, error) {
	rows, err := r.pool.Query(ctx, qListVisible, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rev)
	}
	return out, rows.Err()
}

func scanReview(row pgx.Row) (*Review, error) {
	var rev Review
	if err := row.Scan(&rev.ID, &rev.UserID, &rev.ListingID, &rev.Rating, &rev.Comment, &rev.Visible, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
		return nil, err
	}
	return &rev, nil
}

var _ Repository = (*PGRepository)(nil)
