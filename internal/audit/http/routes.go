package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the audit log list and CSV export under /api/admin.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(h.rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too many requests", "audit export rate limit exceeded")
		}),
	)
	r.Get("/audit-logs", h.handleList)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/audit-logs/export.csv", h.handleExport)
	})
}

func (h *Handler) rateLimitKey(r *http.Request) (string, error) {
	if h.actor != nil {
		if actor, ok := h.actor(r); ok && actor.ID != "" {
			return "user:" + actor.ID, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
