package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// ErrSubjectGone is returned when the claims subject no longer exists. The
// caller must discard the claims.
var ErrSubjectGone = errors.New("claims: subject no longer exists")

// Trigger names why a refresh ran.
type Trigger string

const (
	// TriggerUpdate is an explicit client or server request to re-derive claims.
	TriggerUpdate Trigger = "update"
	// TriggerCadence fires when the claims are older than the refresh interval
	// or the subject has a newer invalidation marker.
	TriggerCadence Trigger = "cadence"
)

// SubjectStore is the system of record read on every refresh.
type SubjectStore interface {
	FindActor(ctx context.Context, id string) (rbac.Actor, error)
}

// Refresher re-derives claims from the system of record.
type Refresher struct {
	issuer   *Issuer
	store    SubjectStore
	stale    shared.StaleChecker
	interval time.Duration
}

// NewRefresher constructs a Refresher. interval bounds how long claims are
// trusted before the next re-read; stale may be nil.
func NewRefresher(issuer *Issuer, store SubjectStore, stale shared.StaleChecker, interval time.Duration) *Refresher {
	if interval <= 0 || interval > issuer.TTL() {
		interval = issuer.TTL()
	}
	return &Refresher{issuer: issuer, store: store, stale: stale, interval: interval}
}

// Interval returns the refresh cadence.
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Due reports whether c should be re-derived before it is used.
func (r *Refresher) Due(ctx context.Context, c Claims) (bool, error) {
	if c.Age(r.issuer.now()) >= r.interval {
		return true, nil
	}
	if r.stale == nil {
		return false, nil
	}
	since, ok, err := r.stale.StaleSince(ctx, c.Subject)
	if err != nil {
		return false, err
	}
	// Token iat has second precision; a marker in the same second counts as newer.
	return ok && !since.Before(c.IssuedAt), nil
}

// Refresh re-reads role and status for old.Subject and mints a new token.
// The old claims are left untouched.
func (r *Refresher) Refresh(ctx context.Context, old Claims, _ Trigger) (Token, error) {
	actor, err := r.store.FindActor(ctx, old.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return Token{}, ErrSubjectGone
		}
		return Token{}, fmt.Errorf("claims: refresh %s: %w", old.Subject, err)
	}
	if actor.ID != old.Subject {
		return Token{}, ErrSubjectGone
	}
	return r.issuer.Mint(actor)
}
