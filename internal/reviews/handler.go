package reviews

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// Handler exposes review endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actor   rbac.ActorFunc
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actor rbac.ActorFunc) *Handler {
	return &Handler{logger: logger, service: service, actor: actor}
}

// MountPublicRoutes registers read routes under /api/listings.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/{id}/reviews", h.forListing)
}

// MountUserRoutes registers author routes under /api/user.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Post("/reviews", h.create)
	r.Patch("/reviews/{id}", h.update)
	r.Delete("/reviews/{id}", h.delete)
}

// MountAdminRoutes registers moderation routes under /api/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Patch("/reviews/{id}", h.update)
	r.Delete("/reviews/{id}", h.delete)
}

type reviewView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ListingID string    `json:"listingId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Visible   bool      `json:"isVisible"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toView(r Review) reviewView {
	return reviewView{
		ID:        r.ID,
		UserID:    r.UserID,
		ListingID: r.ListingID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Visible:   r.Visible,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (h *Handler) forListing(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ForListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, h.logger, "list reviews", err)
		return
	}
	out := make([]reviewView, 0, len(rows))
	for _, rev := range rows {
		out = append(out, toView(rev))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": out})
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
	rev, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		httpx.Fail(w, h.logger, "create review", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(*rev))
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
	rev, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		httpx.Fail(w, h.logger, "update review", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*rev))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, h.logger, "delete review", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
