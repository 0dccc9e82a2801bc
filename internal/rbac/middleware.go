package rbac

import (
	"log/slog"
	"net/http"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// ActorFunc resolves the authenticated actor for a request.
type ActorFunc func(r *http.Request) (Actor, bool)

// DecisionRecorder observes authorization outcomes.
type DecisionRecorder interface {
	ObserveDecision(code string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Actor    ActorFunc
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// RequireAny ensures the current actor is active and holds at least one of perms.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor Actor
			ok := false
			if m.Actor != nil {
				actor, ok = m.Actor(r)
			}
			decision := Decision{Code: shared.CodeUnauthenticated}
			if ok {
				decision = RequireActive(actor.Status)
				if decision.Authorized && len(perms) > 0 && !HasAnyPermission(actor.Role, perms) {
					decision = Decision{Code: shared.CodeInsufficientPermissions}
				}
			}
			m.observe(decision)
			if !decision.Authorized {
				if m.Logger != nil {
					m.Logger.Debug("rbac denied",
						slog.String("path", r.URL.Path),
						slog.String("actor", actor.ID),
						slog.String("code", string(decision.Code)))
				}
				httpx.RespondError(w, decision.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(d Decision) {
	if m.Recorder == nil {
		return
	}
	code := string(d.Code)
	if d.Authorized {
		code = "AUTHORIZED"
	}
	m.Recorder.ObserveDecision(code)
}

// Require returns the request's actor, or writes 401 and reports false.
func (f ActorFunc) Require(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	if f != nil {
		if actor, ok := f(r); ok {
			return actor, true
		}
	}
	httpx.RespondError(w, shared.ErrUnauthenticated)
	return Actor{}, false
}
