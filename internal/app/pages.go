package app

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/gate"
	"github.com/gadgetbay/gadgetbay/internal/listings"
	"github.com/gadgetbay/gadgetbay/internal/orders"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/sellers"
	"github.com/gadgetbay/gadgetbay/internal/shared"
	"github.com/gadgetbay/gadgetbay/internal/view"
)

// DashboardSources supplies the counters shown on the dashboards. Any field
// may be nil; its cards are then omitted.
type DashboardSources struct {
	Orders interface {
		ListMine(ctx context.Context, caller rbac.Actor, page, limit int) (orders.Page, error)
		ListSales(ctx context.Context, caller rbac.Actor, page, limit int) (orders.Page, error)
	}
	Listings interface {
		Browse(ctx context.Context, filter listings.BrowseFilter) (listings.Page, error)
	}
	Sellers interface {
		ApplicationStatus(ctx context.Context, caller rbac.Actor) (*sellers.Application, error)
	}
	Accounts interface {
		Stats(ctx context.Context, caller rbac.Actor) (accounts.Stats, error)
	}
}

// PagesHandler renders the home page, the account status pages and the
// role dashboards. Access to dashboards is decided by the gate.
type PagesHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	sources   DashboardSources
}

// NewPagesHandler builds the page handler.
func NewPagesHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, sources DashboardSources) *PagesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PagesHandler{logger: logger, templates: templates, csrf: csrf, sources: sources}
}

// MountRoutes registers the page routes at the root.
func (h *PagesHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get(gate.SuspendedPath, h.static("pages/suspended.html", "Account suspended"))
	r.Get(gate.BannedPath, h.static("pages/banned.html", "Account banned"))
	r.Get(gate.ForbiddenPath, h.forbidden)
	r.Get(gate.UserLandingPath, h.userDashboard)
	r.Get(gate.SellerLandingPath, h.sellerDashboard)
	r.Get(gate.AdminLandingPath, h.adminDashboard)
}

type card struct {
	Label string
	Value string
}

type dashboard struct {
	Heading string
	Intro   string
	Cards   []card
}

var navLinks = []view.NavLink{
	{Href: gate.UserLandingPath, Label: "My dashboard"},
	{Href: gate.SellerLandingPath, Label: "Seller", Permission: rbac.PermListingCreate},
	{Href: gate.AdminLandingPath, Label: "Admin", Permission: rbac.PermAdminAccessDashboard},
}

func (h *PagesHandler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/home.html", "GadgetBay", nil)
}

func (h *PagesHandler) static(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, title, nil)
	}
}

func (h *PagesHandler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "pages/forbidden.html", "Access denied", nil)
}

func (h *PagesHandler) userDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := claims.ActorFromRequest(r)
	if !ok {
		http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
		return
	}
	d := dashboard{Heading: "My dashboard", Intro: "Your orders and seller status."}
	if h.sources.Orders != nil {
		if page, err := h.sources.Orders.ListMine(r.Context(), actor, 1, 1); err == nil {
			d.Cards = append(d.Cards, card{Label: "Orders placed", Value: strconv.Itoa(page.Pagination.Total)})
		} else {
			h.warn("dashboard orders", err)
		}
	}
	if h.sources.Sellers != nil && actor.Role == rbac.RoleUser {
		status := "Not applied"
		app, err := h.sources.Sellers.ApplicationStatus(r.Context(), actor)
		switch {
		case err != nil:
			h.warn("dashboard application", err)
		case app != nil:
			status = string(app.Status)
		}
		d.Cards = append(d.Cards, card{Label: "Seller application", Value: status})
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", d.Heading, d)
}

func (h *PagesHandler) sellerDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := claims.ActorFromRequest(r)
	if !ok {
		http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
		return
	}
	d := dashboard{Heading: "Seller dashboard", Intro: "Your storefront at a glance."}
	if h.sources.Listings != nil {
		if page, err := h.sources.Listings.Browse(r.Context(), listings.BrowseFilter{SellerID: actor.ID, Page: 1, Limit: 1}); err == nil {
			d.Cards = append(d.Cards, card{Label: "Active listings", Value: strconv.Itoa(page.Pagination.Total)})
		} else {
			h.warn("dashboard listings", err)
		}
	}
	if h.sources.Orders != nil {
		if page, err := h.sources.Orders.ListSales(r.Context(), actor, 1, 1); err == nil {
			d.Cards = append(d.Cards, card{Label: "Orders received", Value: strconv.Itoa(page.Pagination.Total)})
		} else {
			h.warn("dashboard sales", err)
		}
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", d.Heading, d)
}

func (h *PagesHandler) adminDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := claims.ActorFromRequest(r)
	if !ok {
		http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
		return
	}
	d := dashboard{Heading: "Admin dashboard", Intro: "Accounts by role and status."}
	if h.sources.Accounts != nil {
		stats, err := h.sources.Accounts.Stats(r.Context(), actor)
		if err == nil {
			d.Cards = append(d.Cards, card{Label: "Accounts", Value: strconv.Itoa(stats.Total)})
			for _, role := range rbac.AllRoles() {
				d.Cards = append(d.Cards, card{Label: role.DisplayName(), Value: strconv.Itoa(stats.ByRole[role])})
			}
			d.Cards = append(d.Cards,
				card{Label: "Suspended", Value: strconv.Itoa(stats.ByStatus[rbac.StatusSuspended])},
				card{Label: "Banned", Value: strconv.Itoa(stats.ByStatus[rbac.StatusBanned])},
			)
		} else {
			h.warn("dashboard stats", err)
		}
	}
	h.render(w, r, http.StatusOK, "pages/dashboard.html", d.Heading, d)
}

func (h *PagesHandler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := view.TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if h.csrf != nil {
		td.CSRFToken = h.csrf.EnsureToken(w, r)
	}
	if actor, ok := claims.ActorFromRequest(r); ok {
		td.Actor = &actor
		td.Nav = view.VisibleNav(actor, navLinks)
	}
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *PagesHandler) warn(op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
}
