package sellers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// Handler exposes seller onboarding endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actor   rbac.ActorFunc
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actor rbac.ActorFunc) *Handler {
	return &Handler{logger: logger, service: service, actor: actor}
}

// MountUserRoutes registers applicant routes under /api/user.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Post("/seller-application", h.submit)
	r.Get("/seller-application", h.applicationStatus)
}

// MountSellerRoutes registers storefront routes under /api/seller.
func (h *Handler) MountSellerRoutes(r chi.Router) {
	r.Get("/profile", h.profile)
	r.Patch("/profile", h.updateProfile)
}

// MountAdminRoutes registers review routes under /api/admin.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/sellers", h.list)
	r.Post("/sellers/{id}/review", h.review)
}

type applicationView struct {
	ID                  string            `json:"id"`
	UserID              string            `json:"userId"`
	ApplicantName       string            `json:"applicantName,omitempty"`
	ApplicantEmail      string            `json:"applicantEmail,omitempty"`
	BusinessName        string            `json:"businessName"`
	BusinessDescription string            `json:"businessDescription,omitempty"`
	Status              ApplicationStatus `json:"status"`
	RejectionReason     string            `json:"rejectionReason,omitempty"`
	ReviewedAt          *time.Time        `json:"reviewedAt,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
}

func toApplicationView(a Application) applicationView {
	return applicationView{
		ID:                  a.ID,
		UserID:              a.UserID,
		ApplicantName:       a.ApplicantName,
		ApplicantEmail:      a.ApplicantEmail,
		BusinessName:        a.BusinessName,
		BusinessDescription: a.BusinessDescription,
		Status:              a.Status,
		RejectionReason:     a.RejectionReason,
		ReviewedAt:          a.ReviewedAt,
		CreatedAt:           a.CreatedAt,
	}
}

type profileView struct {
	UserID       string     `json:"userId"`
	BusinessName string     `json:"businessName"`
	Description  string     `json:"description,omitempty"`
	LogoURL      string     `json:"logoUrl,omitempty"`
	ReturnPolicy string     `json:"returnPolicy,omitempty"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toProfileView(p Profile) profileView {
	return profileView{
		UserID:       p.UserID,
		BusinessName: p.BusinessName,
		Description:  p.Description,
		LogoURL:      p.LogoURL,
		ReturnPolicy: p.ReturnPolicy,
		VerifiedAt:   p.VerifiedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input SubmitInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	app, err := h.service.Submit(r.Context(), actor, input)
	if err != nil {
		httpx.Fail(w, h.logger, "submit seller application", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toApplicationView(*app))
}

func (h *Handler) applicationStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	app, err := h.service.ApplicationStatus(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "application status", err)
		return
	}
	if app == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"data": nil})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": toApplicationView(*app)})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	p, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "seller profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfileView(*p))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var input ProfileInput
	if !httpx.Decode(w, r, &input) {
		return
	}
	p, err := h.service.UpdateProfile(r.Context(), actor, input)
	if err != nil {
		httpx.Fail(w, h.logger, "update seller profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProfileView(*p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	filter := ListFilter{
		Status: ApplicationStatus(r.URL.Query().Get("status")),
		Page:   httpx.QueryInt(r, "page", 1),
		Limit:  httpx.QueryInt(r, "limit", defaultListLimit),
	}
	res, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		httpx.Fail(w, h.logger, "list seller applications", err)
		return
	}
	out := make([]applicationView, 0, len(res.Applications))
	for _, a := range res.Applications {
		out = append(out, toApplicationView(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"pagination": map[string]int{
			"page":       res.Pagination.Page,
			"limit":      res.Pagination.PerPage,
			"total":      res.Pagination.Total,
			"totalPages": res.Pagination.TotalPages,
		},
	})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor.Require(w, r)
	if !ok {
		return
	}
	var req struct {
		Action          string `json:"action"`
		RejectionReason string `json:"rejectionReason"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	input := ReviewInput{ApplicationID: chi.URLParam(r, "id"), Action: req.Action, RejectionReason: req.RejectionReason}
	if err := h.service.Review(r.Context(), actor, input); err != nil {
		httpx.Fail(w, h.logger, "review seller application", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
