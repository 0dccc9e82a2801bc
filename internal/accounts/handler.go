package accounts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// Handler exposes account administration and profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actor   rbac.ActorFunc
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actor rbac.ActorFunc) *Handler {
	return &Handler{logger: logger, service: service, actor: actor}
}

// MountAdminRoutes registers routes under /api/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Get("/users/export", h.exportUsers)
	r.Get("/stats", h.stats)
	r.Post("/users/{id}/suspend", h.suspend)
	r.Post("/users/{id}/ban", h.ban)
	r.Post("/users/{id}/reactivate", h.reactivate)
	r.Patch("/users/{id}/role", h.changeRole)
}

// MountUserRoutes registers routes under /api/user.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/profile", h.getProfile)
	r.Patch("/profile", h.updateProfile)
	r.Delete("/profile", h.deleteAccount)
	r.Post("/profile/password", h.changePassword)
}

type accountView struct {
	ID              string             `json:"id"`
	Email           string             `json:"email"`
	Name            string             `json:"name"`
	Role            rbac.Role          `json:"role"`
	Status          rbac.AccountStatus `json:"accountStatus"`
	SuspendedReason string             `json:"suspensionReason,omitempty"`
	SuspendedUntil  *time.Time         `json:"suspensionExpiresAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func toView(a Account) accountView {
	return accountView{
		ID:              a.ID,
		Email:           a.Email,
		Name:            a.Name,
		Role:            a.Role,
		Status:          a.Status,
		SuspendedReason: a.SuspendedReason,
		SuspendedUntil:  a.SuspendedUntil,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toViews(rows []Account) []accountView {
	out := make([]accountView, 0, len(rows))
	for _, a := range rows {
		out = append(out, toView(a))
	}
	return out
}

type pageView struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		Search: q.Get("search"),
		Role:   rbac.Role(q.Get("role")),
		Status: rbac.AccountStatus(q.Get("status")),
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "limit", defaultListLimit),
	}
	res, err := h.service.ListUsers(r.Context(), actor, filter)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": toViews(res.Accounts),
		"pagination": pageView{
			Page:       res.Pagination.Page,
			Limit:      res.Pagination.PerPage,
			Total:      res.Pagination.Total,
			TotalPages: res.Pagination.TotalPages,
		},
	})
}

func (h *Handler) exportUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ExportUsers(r.Context(), actor)
	if err != nil {
		h.fail(w, "export users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": toViews(rows)})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		h.fail(w, "account stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

type reasonRequest struct {
	Reason    string     `json:"reason"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := SuspendInput{UserID: chi.URLParam(r, "id"), Reason: req.Reason, ExpiresAt: req.ExpiresAt}
	if err := h.service.Suspend(r.Context(), actor, input); err != nil {
		h.fail(w, "suspend user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ban(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Ban(r.Context(), actor, BanInput{UserID: chi.URLParam(r, "id"), Reason: req.Reason}); err != nil {
		h.fail(w, "ban user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.service.Reactivate(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "reactivate user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ChangeRole(r.Context(), actor, ChangeRoleInput{UserID: chi.URLParam(r, "id"), Role: req.Role}); err != nil {
		h.fail(w, "change role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetProfile(r.Context(), actor)
	if err != nil {
		h.fail(w, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*account))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var input ProfileInput
	if !h.decode(w, r, &input) {
		return
	}
	account, err := h.service.UpdateProfile(r.Context(), actor, input)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toView(*account))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	var input ChangePasswordInput
	if !h.decode(w, r, &input) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor, input); err != nil {
		h.fail(w, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), actor); err != nil {
		h.fail(w, "delete account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (rbac.Actor, bool) {
	return h.actor.Require(w, r)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	return httpx.Decode(w, r, target)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	httpx.Fail(w, h.logger, op, err)
}
