package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// ActorSource reads an actor's current role and status by id.
type ActorSource interface {
	FindActor(ctx context.Context, id string) (Actor, error)
}

// Current re-reads caller from the store. Claims can lag a moderation action
// by up to one refresh interval, so mutating operations authorize against
// this value rather than the token. A subject that no longer exists is
// unauthenticated.
func Current(ctx context.Context, src ActorSource, caller Actor) (Actor, error) {
	if caller.ID == "" {
		return Actor{}, shared.ErrUnauthenticated
	}
	actor, err := src.FindActor(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return Actor{}, shared.ErrUnauthenticated
		}
		return Actor{}, fmt.Errorf("load actor: %w", err)
	}
	return actor, nil
}

// CurrentWith re-reads caller and authorizes perm against the fresh value.
func CurrentWith(ctx context.Context, src ActorSource, caller Actor, perm Permission) (Actor, error) {
	actor, err := Current(ctx, src, caller)
	if err != nil {
		return Actor{}, err
	}
	if d := actor.Authorize(perm); !d.Authorized {
		return Actor{}, d.Err()
	}
	return actor, nil
}
