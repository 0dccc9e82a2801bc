package shared

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Invalidation reasons recorded when an account's outstanding claims go stale.
const (
	InvalidationSuspended      = "account_suspended"
	InvalidationBanned         = "account_banned"
	InvalidationReactivated    = "account_reactivated"
	InvalidationDeleted        = "account_deleted"
	InvalidationSellerApproved = "role_upgraded_to_seller"
)

// InvalidationRoleChanged returns the reason recorded after a role change.
func InvalidationRoleChanged(role string) string {
	return "role_changed_to_" + role
}

// InvalidationSink is the append-only destination for credential invalidation records.
type InvalidationSink interface {
	Record(ctx context.Context, subjectID, reason string) error
}

// StaleChecker reports when a subject's claims were last invalidated.
type StaleChecker interface {
	StaleSince(ctx context.Context, subjectID string) (time.Time, bool, error)
}

// InvalidationLog appends to token_invalidations and drops a short-lived
// marker in Redis so the refresh path can skip its cadence for that subject.
type InvalidationLog struct {
	pool      *pgxpool.Pool
	client    *redis.Client
	markerTTL time.Duration
	now       func() time.Time
}

// NewInvalidationLog constructs an InvalidationLog. markerTTL should be at
// least the claims lifetime; older markers cannot match a live token.
func NewInvalidationLog(pool *pgxpool.Pool, client *redis.Client, markerTTL time.Duration) *InvalidationLog {
	return &InvalidationLog{pool: pool, client: client, markerTTL: markerTTL, now: time.Now}
}

// Record persists the invalidation row and sets the stale marker. The row is
// the durable record; a failed marker write is returned but the row stays.
func (l *InvalidationLog) Record(ctx context.Context, subjectID, reason string) error {
	if l == nil {
		return errors.New("invalidation log not initialised")
	}
	if subjectID == "" || reason == "" {
		return errors.New("invalidation requires subject and reason")
	}
	at := l.now().UTC()
	if l.pool != nil {
		if _, err := l.pool.Exec(ctx, `INSERT INTO token_invalidations (id, user_id, reason, created_at) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), subjectID, reason, at); err != nil {
			return err
		}
	}
	if l.client == nil {
		return nil
	}
	if err := l.client.Set(ctx, staleKey(subjectID), at.UnixMilli(), l.markerTTL).Err(); err != nil {
		return fmt.Errorf("shared: stale marker: %w", err)
	}
	return nil
}

// StaleSince returns the time of the latest invalidation marker for subjectID.
func (l *InvalidationLog) StaleSince(ctx context.Context, subjectID string) (time.Time, bool, error) {
	if l == nil || l.client == nil {
		return time.Time{}, false, nil
	}
	raw, err := l.client.Get(ctx, staleKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("shared: stale marker %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func staleKey(subjectID string) string {
	return "claims:stale:" + subjectID
}

var (
	_ InvalidationSink = (*InvalidationLog)(nil)
	_ StaleChecker     = (*InvalidationLog)(nil)
)
