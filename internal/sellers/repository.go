package sellers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gadgetbay/gadgetbay/internal/platform/db"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Repository is the seller onboarding store.
type Repository interface {
	HasPendingApplication(ctx context.Context, userID string) (bool, error)
	CreateApplication(ctx context.Context, userID string, in SubmitInput) (string, error)
	FindApplication(ctx context.Context, id string) (*Application, error)
	LatestApplication(ctx context.Context, userID string) (*Application, error)
	ListApplications(ctx context.Context, filter ListFilter) ([]Application, int, error)
	Approve(ctx context.Context, app Application, reviewerID string) error
	Reject(ctx context.Context, applicationID, reviewerID, reason string) error
	FindProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// HasPendingApplication reports whether userID is awaiting review.
func (r *PGRepository) HasPendingApplication(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, qHasPending, userID).Scan(&ok)
	return ok, err
}

// CreateApplication inserts a PENDING application. A concurrent duplicate
// trips the partial unique index and maps to APPLICATION_ALREADY_PENDING.
func (r *PGRepository) CreateApplication(ctx context.Context, userID string, in SubmitInput) (string, error) {
	id := uuid.NewString()
	if _, err := r.pool.Exec(ctx, qInsertApplication, id, userID, in.BusinessName, in.BusinessDescription); err != nil {
		if shared.IsUniqueViolation(err) {
			return "", shared.ErrApplicationAlreadyPending
		}
		return "", err
	}
	return id, nil
}

// FindApplication returns shared.ErrApplicationNotFound when no row matches.
func (r *PGRepository) FindApplication(ctx context.Context, id string) (*Application, error) {
	return r.findOne(ctx, qFindApplication, id)
}

// LatestApplication returns the user's most recent application.
func (r *PGRepository) LatestApplication(ctx context.Context, userID string) (*Application, error) {
	return r.findOne(ctx, qLatestApplication, userID)
}

// ListApplications returns one page of applications in a status.
func (r *PGRepository) ListApplications(ctx context.Context, filter ListFilter) ([]Application, int, error) {
	var (
		rows  []Application
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.pool.Query(gctx, qListApplications, string(filter.Status), filter.Limit, (filter.Page-1)*filter.Limit)
		if err != nil {
			return err
		}
		defer res.Close()
		for res.Next() {
			a, err := scanApplication(res)
			if err != nil {
				return err
			}
			rows = append(rows, *a)
		}
		return res.Err()
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, qCountApplications, string(filter.Status)).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Approve marks the application approved, promotes the applicant to SELLER
// and creates their storefront in one transaction.
func (r *PGRepository) Approve(ctx context.Context, app Application, reviewerID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, qMarkReviewed, app.ID, string(ApplicationApproved), reviewerID, "")
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrApplicationAlreadyReviewed
		}
		if _, err := tx.Exec(ctx, qPromoteAccount, app.UserID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, qInsertProfile, app.UserID, app.BusinessName, reviewerID)
		return err
	})
}

// Reject marks the application rejected.
func (r *PGRepository) Reject(ctx context.Context, applicationID, reviewerID, reason string) error {
	tag, err := r.pool.Exec(ctx, qMarkReviewed, applicationID, string(ApplicationRejected), reviewerID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrApplicationAlreadyReviewed
	}
	return nil
}

// FindProfile returns shared.ErrSellerProfileNotFound when no row matches.
func (r *PGRepository) FindProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, qFindProfile, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrSellerProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpdateProfile writes the non-nil fields of in.
func (r *PGRepository) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, qUpdateProfile, userID, in.BusinessName, in.Description, in.LogoURL, in.ReturnPolicy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrSellerProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PGRepository) findOne(ctx context.Context, q string, arg any) (*Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrApplicationNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanApplication(row pgx.Row) (*Application, error) {
	var (
		a      Application
		status string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.ApplicantName, &a.ApplicantEmail, &a.BusinessName, &a.BusinessDescription,
		&status, &a.RejectionReason, &a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Status = ApplicationStatus(status)
	return &a, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.UserID, &p.BusinessName, &p.Description, &p.LogoURL, &p.ReturnPolicy,
		&p.VerifiedBy, &p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Repository = (*PGRepository)(nil)
