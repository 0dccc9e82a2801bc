package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Repository reads audit_logs.
type Repository interface {
	ListEntries(ctx context.Context, filters Filters) ([]Entry, int, error)
	ExportEntries(ctx context.Context, filters Filters, max int) ([]Entry, error)
}

// PGRepository provides PostgreSQL backed reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListEntries returns one page of entries plus the total matching count.
func (r *PGRepository) ListEntries(ctx context.Context, filters Filters) ([]Entry, int, error) {
	args := filterArgs(filters)
	var (
		entries []Entry
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, qListEntries, append(args, filters.Limit, (filters.Page-1)*filters.Limit)...)
		if err != nil {
			return err
		}
		entries, err = collect(rows)
		return err
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, qCountEntries, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ExportEntries returns up to max matching entries, newest first.
func (r *PGRepository) ExportEntries(ctx context.Context, filters Filters, max int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, qExportEntries, append(filterArgs(filters), max)...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func filterArgs(f Filters) []any {
	return []any{f.Action, f.TargetType, f.ActorID, toPgTime(f.From), toPgTime(f.To)}
}

func collect(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.ActorRole, &e.Action, &e.TargetType, &e.TargetID, &meta, &e.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
