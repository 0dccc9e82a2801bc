package gate

import (
	"log/slog"
	"net/http"

	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// OutcomeRecorder observes gate outcomes.
type OutcomeRecorder interface {
	ObserveGate(outcome string)
}

var messages = map[shared.Code]string{
	shared.CodeUnauthenticated: shared.ErrUnauthenticated.Message,
	shared.CodeForbidden:       shared.ErrForbidden.Message,
}

// Middleware adapts Gate to net/http. It must run after the claims loader.
func Middleware(g *Gate, logger *slog.Logger, recorder OutcomeRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor *rbac.Actor
			if c, ok := claims.FromContext(r.Context()); ok {
				a := c.Actor()
				actor = &a
			}
			d := g.Decide(r.URL.Path, actor)
			if recorder != nil {
				recorder.ObserveGate(d.Outcome.String())
			}
			switch d.Outcome {
			case Redirect:
				if logger != nil {
					logger.Debug("gate redirect", slog.String("path", r.URL.Path), slog.String("location", d.Location))
				}
				http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
			case Forbid:
				httpx.JSON(w, d.Status, httpx.ErrorBody{Error: string(d.Code), Message: messages[d.Code]})
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
