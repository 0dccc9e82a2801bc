package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/gate"
	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
	"github.com/gadgetbay/gadgetbay/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	transport *claims.Transport
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, transport *claims.Transport, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, transport: transport, csrf: csrf}
}

// MountRoutes registers page routes under /auth.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

// MountAPIRoutes registers JSON routes under /api/auth.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Post("/login", h.apiLogin)
	r.Post("/logout", h.apiLogout)
	r.Get("/session", h.currentSession)
	r.Post("/session/refresh", h.refreshSession)
}

type loginPageData struct {
	Email       string
	CallbackURL string
	Errors      map[string]string
}

type registerPageData struct {
	Name   string
	Email  string
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	var flash *view.Flash
	if r.URL.Query().Get("registered") == "true" {
		flash = &view.Flash{Kind: "success", Message: "Account created. Please sign in."}
	}
	data := loginPageData{CallbackURL: r.URL.Query().Get(gate.CallbackParam)}
	h.render(w, r, http.StatusOK, "pages/login.html", "Sign in", flash, data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	input := LoginInput{Email: r.PostFormValue("email"), Password: r.PostFormValue("password")}
	data := loginPageData{Email: input.Email, CallbackURL: r.PostFormValue(gate.CallbackParam), Errors: map[string]string{}}

	sess, err := h.service.SignIn(r.Context(), input)
	if err == nil {
		h.transport.Write(w, sess.Token, false)
		h.logger.Info("signed in", slog.String("subject", sess.Principal.ID), slog.String("role", string(sess.Principal.Role)))
		http.Redirect(w, r, afterSignIn(data.CallbackURL, sess.Principal.Role), http.StatusSeeOther)
		return
	}

	status := http.StatusBadRequest
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		data.Errors = verr.Fields
	case errors.Is(err, shared.ErrAccountSuspended), errors.Is(err, shared.ErrAccountBanned):
		d, _ := shared.AsDenial(err)
		data.Errors["general"] = d.Message
		status = http.StatusForbidden
	case errors.Is(err, shared.ErrInvalidCredentials):
		data.Errors["general"] = shared.ErrInvalidCredentials.Message
		status = http.StatusUnauthorized
	default:
		h.logger.Error("sign in", slog.Any("error", err))
		data.Errors["general"] = "Sign-in is temporarily unavailable"
		status = http.StatusInternalServerError
	}
	h.render(w, r, status, "pages/login.html", "Sign in", nil, data)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/register.html", "Register", nil, registerPageData{})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	input := RegisterInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	principal, err := h.service.Register(r.Context(), input)
	if err == nil {
		h.logger.Info("account registered", slog.String("subject", principal.ID))
		http.Redirect(w, r, gate.LoginPath+"?registered=true", http.StatusSeeOther)
		return
	}

	data := registerPageData{Name: input.Name, Email: input.Email, Errors: map[string]string{}}
	status := http.StatusBadRequest
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		data.Errors = verr.Fields
	case errors.Is(err, shared.ErrEmailTaken):
		data.Errors["email"] = shared.ErrEmailTaken.Message
		status = http.StatusConflict
	default:
		h.logger.Error("register", slog.Any("error", err))
		data.Errors["general"] = "Registration is temporarily unavailable"
		status = http.StatusInternalServerError
	}
	h.render(w, r, status, "pages/register.html", "Register", nil, data)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.transport.Clear(w)
	http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
}

type principalView struct {
	ID     string             `json:"id"`
	Email  string             `json:"email,omitempty"`
	Name   string             `json:"name,omitempty"`
	Role   rbac.Role          `json:"role"`
	Status rbac.AccountStatus `json:"accountStatus"`
}

type sessionView struct {
	User      principalView `json:"user"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Token     string        `json:"token,omitempty"`
	CSRFToken string        `json:"csrfToken,omitempty"`
}

func (h *Handler) apiLogin(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.BadRequest(w, err)
		return
	}
	sess, err := h.service.SignIn(r.Context(), input)
	if err != nil {
		httpx.Fail(w, h.logger, "api sign in", err)
		return
	}
	p := sess.Principal
	httpx.JSON(w, http.StatusOK, sessionView{
		User:      principalView{ID: p.ID, Email: p.Email, Name: p.DisplayName, Role: p.Role, Status: p.Status},
		ExpiresAt: sess.ExpiresAt(),
		Token:     sess.Token.Value,
	})
}

func (h *Handler) apiLogout(w http.ResponseWriter, r *http.Request) {
	h.transport.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	c, ok := claims.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	out := sessionFromClaims(c)
	if !claims.IsBearer(r.Context()) && h.csrf != nil {
		out.CSRFToken = h.csrf.EnsureToken(w, r)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) refreshSession(w http.ResponseWriter, r *http.Request) {
	c, ok := claims.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	bearer := claims.IsBearer(r.Context())
	tok, err := h.service.Refresh(r.Context(), c)
	if err != nil {
		if errors.Is(err, claims.ErrSubjectGone) {
			if !bearer {
				h.transport.Clear(w)
			}
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		httpx.Fail(w, h.logger, "refresh session", err)
		return
	}
	h.transport.Write(w, tok, bearer)
	out := sessionFromClaims(tok.Claims)
	if bearer {
		out.Token = tok.Value
	}
	httpx.JSON(w, http.StatusOK, out)
}

func sessionFromClaims(c claims.Claims) sessionView {
	return sessionView{
		User:      principalView{ID: c.Subject, Role: c.Role, Status: c.Status},
		ExpiresAt: c.ExpiresAt,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, flash *view.Flash, data any) {
	token := ""
	if h.csrf != nil {
		token = h.csrf.EnsureToken(w, r)
	}
	td := view.TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, td); err != nil {
		h.logger.Error("render", slog.String("template", name), slog.Any("error", err))
	}
}

// afterSignIn returns a same-origin callback path or the role's landing page.
func afterSignIn(callback string, role rbac.Role) string {
	if isLocalPath(callback) {
		return callback
	}
	return gate.LandingFor(role)
}

func isLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return !strings.HasPrefix(p, gate.LoginPath)
}
