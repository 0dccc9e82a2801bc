package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// PermissionsHandler exposes the static permission tables to clients.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountUserRoutes registers the caller's own permission view.
func (h *PermissionsHandler) MountUserRoutes(r chi.Router) {
	r.Get("/permissions", h.myPermissions)
}

// MountAdminRoutes registers the role table view.
func (h *PermissionsHandler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermAdminManageRBAC))
		r.Get("/rbac/roles", h.listRoles)
	})
}

type permissionsResponse struct {
	Role        Role          `json:"role"`
	DisplayName string        `json:"displayName"`
	Status      AccountStatus `json:"status"`
	Permissions []Permission  `json:"permissions"`
}

type roleResponse struct {
	Role        Role         `json:"role"`
	DisplayName string       `json:"displayName"`
	Level       int          `json:"level"`
	Permissions []Permission `json:"permissions"`
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.rbac.Actor(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	perms := PermissionsForRole(actor.Role)
	if !IsAccountActive(actor.Status) {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		Role:        actor.Role,
		DisplayName: actor.Role.DisplayName(),
		Status:      actor.Status,
		Permissions: perms,
	})
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := AllRoles()
	out := make([]roleResponse, 0, len(roles)+1)
	for _, role := range roles {
		out = append(out, roleResponse{
			Role:        role,
			DisplayName: role.DisplayName(),
			Level:       role.Level(),
			Permissions: PermissionsForRole(role),
		})
	}
	out = append(out, roleResponse{Role: "GUEST", DisplayName: "Guest", Permissions: GuestPermissions()})
	httpx.JSON(w, http.StatusOK, out)
}
