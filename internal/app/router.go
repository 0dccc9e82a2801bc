package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	audithttp "github.com/gadgetbay/gadgetbay/internal/audit/http"
	"github.com/gadgetbay/gadgetbay/internal/auth"
	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/gate"
	"github.com/gadgetbay/gadgetbay/internal/listings"
	"github.com/gadgetbay/gadgetbay/internal/observability"
	"github.com/gadgetbay/gadgetbay/internal/orders"
	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/reviews"
	"github.com/gadgetbay/gadgetbay/internal/sellers"
	"github.com/gadgetbay/gadgetbay/internal/shared"
	"github.com/gadgetbay/gadgetbay/jobs"
	"github.com/gadgetbay/gadgetbay/web"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are skipped.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	ClaimsLoader *claims.Loader
	Gate         *gate.Gate
	CSRFManager  *shared.CSRFManager
	Metrics      *observability.Metrics

	PagesHandler       *PagesHandler
	AuthHandler        *auth.Handler
	AccountsHandler    *accounts.Handler
	SellersHandler     *sellers.Handler
	ListingsHandler    *listings.Handler
	OrdersHandler      *orders.Handler
	ReviewsHandler     *reviews.Handler
	AuditHandler       *audithttp.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with GadgetBay defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:       params.Logger,
		Config:       params.Config,
		ClaimsLoader: params.ClaimsLoader,
		Gate:         params.Gate,
		CSRFManager:  params.CSRFManager,
		Metrics:      params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.PagesHandler != nil {
		params.PagesHandler.MountRoutes(r)
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/api/auth", params.AuthHandler.MountAPIRoutes)
	}

	r.Route("/api/listings", func(r chi.Router) {
		if params.ListingsHandler != nil {
			params.ListingsHandler.MountPublicRoutes(r)
		}
		if params.ReviewsHandler != nil {
			params.ReviewsHandler.MountPublicRoutes(r)
		}
	})

	r.Route("/api/user", func(r chi.Router) {
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountUserRoutes(r)
		}
		if params.SellersHandler != nil {
			params.SellersHandler.MountUserRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountUserRoutes(r)
		}
		if params.ReviewsHandler != nil {
			params.ReviewsHandler.MountUserRoutes(r)
		}
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountUserRoutes(r)
		}
	})

	r.Route("/api/seller", func(r chi.Router) {
		if params.ListingsHandler != nil {
			params.ListingsHandler.MountSellerRoutes(r)
		}
		if params.SellersHandler != nil {
			params.SellersHandler.MountSellerRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountSellerRoutes(r)
		}
	})

	r.Route("/api/admin", func(r chi.Router) {
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountAdminRoutes(r)
		}
		if params.SellersHandler != nil {
			params.SellersHandler.MountAdminRoutes(r)
		}
		if params.ListingsHandler != nil {
			params.ListingsHandler.MountAdminRoutes(r)
		}
		if params.OrdersHandler != nil {
			params.OrdersHandler.MountAdminRoutes(r)
		}
		if params.ReviewsHandler != nil {
			params.ReviewsHandler.MountAdminRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountAdminRoutes(r)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
