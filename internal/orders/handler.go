package orders

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// IdempotencyHeader carries the client's request key on order creation.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actor   rbac.ActorFunc
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actor rbac.ActorFunc) *Handler {
	return &Handler{logger: logger, service: service, actor: actor}
}

// MountUserRoutes registers buyer routes under /api/user.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/orders", h.listMine)
	r.Post("/orders", h.create)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/refund", h.refund)
}

// MountSellerRoutes registers fulfilment routes under /api/seller.
func (h *Handler) MountSellerRoutes(r chi.Router) {
	r.Get("/orders", h.listSales)
	r.Patch("/orders/{id}/status", h.updateStatus)
}

// MountAdminRoutes registers staff routes under /api/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Patch("/orders/{id}/status", h.updateStatus)
}

type orderView struct {
	ID              string    `json:"id"`
	BuyerID         string    `json:"buyerId"`
	SellerID        string    `json:"sellerId"`
	ListingID       string    `json:"listingId"`
	TotalCents      int64     `json:"totalCents"`
	Status          Status    `json:"status"`
	ShippingAddress string    `json:"shippingAddress"`
	Notes           string    `json:"notes,omitempty"`
	TrackingNumber  string    `json:"trackingNumber,omitempty"`
	TrackingURL     string    `json:"trackingUrl,omitempty"`
	CancelReason    string    `json:"cancelReason,omitempty"`
	RefundReason    string    `json:"refundReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toView(o Order) orderView {
	return orderView{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		SellerID:        o.SellerID,
		ListingID:       o.ListingID,
		TotalCents:      o.TotalCents,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		TrackingNumber:  o.TrackingNumber,
		TrackingURL:     o.TrackingURL,
		CancelReason:    o.CancelReason,
		RefundReason:    o.RefundReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func writePage(w http.ResponseWriter, page Page) {
	out := make([]orderView, 0, len(page.Orders))
	for _, o := range page.Orders {
		out = append(out, toView(o))
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

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input CreateInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	order, err := h.service.Create(r.Context(), actor, r.Header.Get(IdempotencyHeader), input)
	if err != nil {
		httpx.Fail(w, h.logger, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(*order))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	page, err := h.service.ListMine(r.Context(), actor, httpx.QueryInt(r, "page", 1), httpx.QueryInt(r, "limit", defaultListLimit))
	if err != nil {
		httpx.Fail(w, h.logger, "list orders", err)
		return
	}
	writePage(w, page)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	page, err := h.service.ListSales(r.Context(), actor, httpx.QueryInt(r, "page", 1), httpx.QueryInt(r, "limit", defaultListLimit))
	if err != nil {
		httpx.Fail(w, h.logger, "list sales", err)
		return
	}
	writePage(w, page)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input CancelInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	if err := h.service.Cancel(r.Context(), actor, chi.URLParam(r, "id"), input); err != nil {
		httpx.Fail(w, h.logger, "cancel order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
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
		httpx.Fail(w, h.logger, "update order status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input RefundInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	if err := h.service.RequestRefund(r.Context(), actor, chi.URLParam(r, "id"), input); err != nil {
		httpx.Fail(w, h.logger, "request refund", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
