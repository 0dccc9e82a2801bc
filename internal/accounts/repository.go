package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Repository is the account store the services depend on.
type Repository interface {
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	FindActor(ctx context.Context, id string) (rbac.Actor, error)
	CreateAccount(ctx context.Context, in NewAccount) (*Account, error)
	UpdateAccountStatus(ctx context.Context, id string, change StatusChange) error
	UpdateAccountRole(ctx context.Context, id string, role rbac.Role) error
	UpdateName(ctx context.Context, id, name string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	ListAccounts(ctx context.Context, filter ListFilter) ([]Account, int, error)
	ExportAccounts(ctx context.Context) ([]Account, error)
	ListExpiredSuspensions(ctx context.Context, now time.Time) ([]Account, error)
	CountByRoleStatus(ctx context.Context) (Stats, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindAccountByID returns shared.ErrUserNotFound when no row matches.
func (r *PGRepository) FindAccountByID(ctx context.Context, id string) (*Account, error) {
	return r.findOne(ctx, qFindByID, id)
}

// FindAccountByEmail looks up by normalised email.
func (r *PGRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, qFindByEmail, email)
}

// FindActor reads only the fields the claims refresh needs.
func (r *PGRepository) FindActor(ctx context.Context, id string) (rbac.Actor, error) {
	var actor rbac.Actor
	var role, status string
	if err := r.pool.QueryRow(ctx, qFindActor, id).Scan(&actor.ID, &role, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Actor{}, shared.ErrUserNotFound
		}
		return rbac.Actor{}, err
	}
	actor.Role = rbac.Role(role)
	actor.Status = rbac.AccountStatus(status)
	return actor, nil
}

// CreateAccount inserts a USER/ACTIVE account.
func (r *PGRepository) CreateAccount(ctx context.Context, in NewAccount) (*Account, error) {
	row := r.pool.QueryRow(ctx, qInsert, uuid.NewString(), in.Email, in.Name, in.PasswordHash)
	acc, err := scanAccount(row)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return nil, shared.ErrEmailTaken
		}
		return nil, err
	}
	return acc, nil
}

// UpdateAccountStatus writes status with its informational reason and expiry.
func (r *PGRepository) UpdateAccountStatus(ctx context.Context, id string, change StatusChange) error {
	var until pgtype.Timestamptz
	if change.Until != nil {
		until = pgtype.Timestamptz{Time: change.Until.UTC(), Valid: true}
	}
	return r.exec(ctx, qUpdateStatus, id, string(change.Status), change.Reason, until)
}

// UpdateAccountRole writes the role.
func (r *PGRepository) UpdateAccountRole(ctx context.Context, id string, role rbac.Role) error {
	return r.exec(ctx, qUpdateRole, id, string(role))
}

// UpdateName writes the display name.
func (r *PGRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.exec(ctx, qUpdateName, id, name)
}

// UpdatePasswordHash writes a new credential hash.
func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, qUpdatePassword, id, hash)
}

// ListAccounts returns one page plus the total match count. Both queries run
// concurrently on the pool.
func (r *PGRepository) ListAccounts(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	where, args := buildListWhere(filter)
	offset := (filter.Page - 1) * filter.Limit

	var (
		rows  []Account
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := `SELECT ` + accountColumns + ` FROM accounts` + where +
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		var err error
		rows, err = r.query(gctx, q, append(append([]any{}, args...), filter.Limit, offset)...)
		return err
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ExportAccounts returns every account.
func (r *PGRepository) ExportAccounts(ctx context.Context) ([]Account, error) {
	return r.query(ctx, qExport)
}

// ListExpiredSuspensions returns suspended accounts whose expiry passed.
func (r *PGRepository) ListExpiredSuspensions(ctx context.Context, now time.Time) ([]Account, error) {
	return r.query(ctx, qExpiredSuspensions, now.UTC())
}

// CountByRoleStatus aggregates account counts.
func (r *PGRepository) CountByRoleStatus(ctx context.Context) (Stats, error) {
	rows, err := r.pool.Query(ctx, qCountByRoleStatus)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	stats := Stats{ByRole: map[rbac.Role]int{}, ByStatus: map[rbac.AccountStatus]int{}}
	for rows.Next() {
		var role, status string
		var n int
		if err := rows.Scan(&role, &status, &n); err != nil {
			return Stats{}, err
		}
		stats.ByRole[rbac.Role(role)] += n
		stats.ByStatus[rbac.AccountStatus(status)] += n
		stats.Total += n
	}
	return stats, rows.Err()
}

func buildListWhere(filter ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		clauses = append(clauses, fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *PGRepository) findOne(ctx context.Context, q string, arg any) (*Account, error) {
	acc, err := scanAccount(r.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (r *PGRepository) query(ctx context.Context, q string, args ...any) ([]Account, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}

func (r *PGRepository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acc          Account
		passwordHash pgtype.Text
		role, status string
		reason       pgtype.Text
		until        pgtype.Timestamptz
	)
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Name, &passwordHash, &role, &status, &reason, &until, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	acc.PasswordHash = passwordHash.String
	acc.Role = rbac.Role(role)
	acc.Status = rbac.AccountStatus(status)
	acc.SuspendedReason = reason.String
	if until.Valid {
		t := until.Time
		acc.SuspendedUntil = &t
	}
	return &acc, nil
}

var _ Repository = (*PGRepository)(nil)
