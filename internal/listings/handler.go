package listings

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// Handler exposes listing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actor   rbac.ActorFunc
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actor rbac.ActorFunc) *Handler {
	return &Handler{logger: logger, service: service, actor: actor}
}

// MountPublicRoutes registers browse routes under /api/listings.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.browse)
	r.Get("/{id}", h.get)
}

// MountSellerRoutes registers management routes under /api/seller.
func (h *Handler) MountSellerRoutes(r chi.Router) {
	r.Post("/listings", h.create)
	r.Patch("/listings/{id}", h.update)
	r.Patch("/listings/{id}/status", h.updateStatus)
	r.Delete("/listings/{id}", h.delete)
}

// MountAdminRoutes registers moderation routes under /api/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Patch("/listings/{id}/status", h.updateStatus)
	r.Delete("/listings/{id}", h.delete)
}

type listingView struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Model       string    `json:"model,omitempty"`
	Condition   Condition `json:"condition"`
	PriceCents  int64     `json:"priceCents"`
	Images      []string  `json:"images"`
	Warranty    string    `json:"warrantyInfo,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toView(l Listing) listingView {
	return listingView{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		Model:       l.Model,
		Condition:   l.Condition,
		PriceCents:  l.PriceCents,
		Images:      l.Images,
		Warranty:    l.Warranty,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (h *Handler) browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := BrowseFilter{
		Search:    q.Get("search"),
		Condition: Condition(q.Get("condition")),
		MinCents:  queryInt64(q.Get("minPrice")),
		MaxCents:  queryInt64(q.Get("maxPrice")),
		SellerID:  q.Get("seller"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      httpx.QueryInt(r, "page", 1),
		Limit:     httpx.QueryInt(r, "limit", defaultBrowseLimit),
	}
	page, err := h.service.Browse(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, h.logger, "browse listings", err)
		return
	}
	out := make([]listingView, 0, len(page.Listings))
	for _, l := range page.Listings {
		out = append(out, toView(l))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"pagination": map[string]int{
			"page":       page.Pagination.Page,
			"limit":      page.Pagination.PerPage,
			"total":      page.Pagination.Total,
			"totalPages": page.Pagination.TotalPages,
		},
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "get listing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*l))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input CreateInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	l, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		httpx.Fail(w, h.logger, "create listing", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(*l))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input UpdateInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	l, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		httpx.Fail(w, h.logger, "update listing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*l))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input StatusInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	if err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), input); err != nil {
		httpx.Fail(w, h.logger, "update listing status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, h.logger, "delete listing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func queryInt64(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
