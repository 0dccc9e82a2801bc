package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/gate"
	"github.com/gadgetbay/gadgetbay/internal/orders"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/sellers"
	"github.com/gadgetbay/gadgetbay/internal/shared"
	_ "github.com/gadgetbay/gadgetbay/internal/testing/guard"
	"github.com/gadgetbay/gadgetbay/internal/view"
)

const testSecret = "app-test-claims-secret-0123456789abcdef"

func TestLoadConfig(t *testing.T) {
	t.Setenv("CLAIMS_SECRET", "short")
	t.Setenv("CSRF_SECRET", "csrf")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("CLAIMS_SECRET", testSecret)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.ClaimsTTL)
	assert.Equal(t, 30*time.Second, cfg.ClaimsRefreshInterval)
	assert.Equal(t, "gb_claims", cfg.ClaimsCookie)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "*/15 * * * *", cfg.SuspensionScanCron)
	assert.False(t, cfg.IsProduction())

	t.Setenv("CLAIMS_REFRESH_INTERVAL", "10m")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
}

type fixture struct {
	issuer    *claims.Issuer
	transport *claims.Transport
	csrf      *shared.CSRFManager
	handler   http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	issuer, err := claims.NewIssuer(testSecret, 5*time.Minute)
	require.NoError(t, err)
	transport := claims.NewTransport("gb_claims", false)
	loader := &claims.Loader{
		Issuer:    issuer,
		Refresher: claims.NewRefresher(issuer, nil, nil, 30*time.Second),
		Transport: transport,
	}
	csrf := shared.NewCSRFManager("csrf-secret", false)
	cfg := &Config{ClaimsCookie: "gb_claims", RateLimitPerMinute: 1000, LoginRatePerMinute: 1000}
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := NewRouter(RouterParams{
		Config:       cfg,
		ClaimsLoader: loader,
		Gate:         gate.Default(),
		CSRFManager:  csrf,
		PagesHandler: NewPagesHandler(nil, templates, csrf, DashboardSources{}),
	})
	return fixture{issuer: issuer, transport: transport, csrf: csrf, handler: handler}
}

func (f fixture) bearer(t *testing.T, actor rbac.Actor) string {
	t.Helper()
	tok, err := f.issuer.Mint(actor)
	require.NoError(t, err)
	return "Bearer " + tok.Value
}

func TestRouterGate(t *testing.T) {
	f := newFixture(t)
	user := rbac.Actor{ID: "u1", Role: rbac.RoleUser, Status: rbac.StatusActive}
	frozen := rbac.Actor{ID: "u2", Role: rbac.RoleUser, Status: rbac.StatusSuspended}

	tests := []struct {
		name     string
		path     string
		auth     string
		wantCode int
		wantBody string
		wantLoc  string
	}{
		{name: "health", path: "/healthz", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "anonymous admin api", path: "/api/admin/users", wantCode: http.StatusUnauthorized, wantBody: "UNAUTHENTICATED"},
		{name: "user on admin api", path: "/api/admin/users", auth: f.bearer(t, user), wantCode: http.StatusForbidden, wantBody: "FORBIDDEN"},
		{name: "suspended on user api", path: "/api/user/orders", auth: f.bearer(t, frozen), wantCode: http.StatusTemporaryRedirect, wantLoc: "/suspended"},
		{name: "anonymous dashboard", path: "/dashboard/user", wantCode: http.StatusTemporaryRedirect, wantLoc: "/auth/login?callbackUrl=%2Fdashboard%2Fuser"},
		{name: "user dashboard", path: "/dashboard/user", auth: f.bearer(t, user), wantCode: http.StatusOK, wantBody: "My dashboard"},
		{name: "suspended page", path: "/suspended", auth: f.bearer(t, frozen), wantCode: http.StatusOK, wantBody: "Account Suspended"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			res := httptest.NewRecorder()
			f.handler.ServeHTTP(res, req)
			assert.Equal(t, tt.wantCode, res.Code)
			if tt.wantBody != "" {
				assert.Contains(t, res.Body.String(), tt.wantBody)
			}
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, res.Header().Get("Location"))
			}
		})
	}
}

func TestCSRFMiddleware(t *testing.T) {
	f := newFixture(t)
	issue := httptest.NewRecorder()
	token := f.csrf.EnsureToken(issue, httptest.NewRequest(http.MethodGet, "/", nil))
	csrfCookie := issue.Result().Cookies()[0]

	loader := &claims.Loader{
		Issuer:    f.issuer,
		Refresher: claims.NewRefresher(f.issuer, nil, nil, 30*time.Second),
		Transport: f.transport,
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	chain := loader.Middleware(csrfMiddleware(f.csrf, "gb_claims", nil)(ok))
	user := rbac.Actor{ID: "u1", Role: rbac.RoleUser, Status: rbac.StatusActive}

	tests := []struct {
		name     string
		build    func() *http.Request
		wantCode int
	}{
		{
			name: "form without token",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader("a=b"))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "form with token",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader("csrf_token="+token))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				req.AddCookie(csrfCookie)
				return req
			},
			wantCode: http.StatusNoContent,
		},
		{
			name: "json without claims cookie",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantCode: http.StatusNoContent,
		},
		{
			name: "json riding a claims cookie",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/user/orders", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				req.AddCookie(&http.Cookie{Name: "gb_claims", Value: "anything"})
				return req
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "bearer",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/user/orders", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", f.bearer(t, user))
				return req
			},
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			chain.ServeHTTP(res, tt.build())
			assert.Equal(t, tt.wantCode, res.Code)
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := loginLimiter(2)(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		res := httptest.NewRecorder()
		h.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		codes = append(codes, res.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, res.Code)
}

type dashboardStub struct{}

func (dashboardStub) ListMine(ctx context.Context, caller rbac.Actor, page, limit int) (orders.Page, error) {
	return orders.Page{Pagination: shared.NewPagination(1, 1, 7)}, nil
}

func (dashboardStub) ListSales(ctx context.Context, caller rbac.Actor, page, limit int) (orders.Page, error) {
	return orders.Page{Pagination: shared.NewPagination(1, 1, 3)}, nil
}

func (dashboardStub) ApplicationStatus(ctx context.Context, caller rbac.Actor) (*sellers.Application, error) {
	return &sellers.Application{Status: sellers.ApplicationPending}, nil
}

func (dashboardStub) Stats(ctx context.Context, caller rbac.Actor) (accounts.Stats, error) {
	return accounts.Stats{Total: 42, ByRole: map[rbac.Role]int{rbac.RoleSeller: 5}}, nil
}

func TestDashboards(t *testing.T) {
	templates, err := view.NewEngine()
	require.NoError(t, err)
	stub := dashboardStub{}
	pages := NewPagesHandler(nil, templates, nil, DashboardSources{Orders: stub, Sellers: stub, Accounts: stub})

	render := func(fn http.HandlerFunc, actor rbac.Actor) string {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req = req.WithContext(claims.WithClaims(req.Context(), claims.Claims{Subject: actor.ID, Role: actor.Role, Status: actor.Status}))
		res := httptest.NewRecorder()
		fn(res, req)
		require.Equal(t, http.StatusOK, res.Code)
		return res.Body.String()
	}

	body := render(pages.userDashboard, rbac.Actor{ID: "u1", Role: rbac.RoleUser, Status: rbac.StatusActive})
	assert.Contains(t, body, "Orders placed")
	assert.Contains(t, body, "PENDING")

	body = render(pages.sellerDashboard, rbac.Actor{ID: "s1", Role: rbac.RoleSeller, Status: rbac.StatusActive})
	assert.Contains(t, body, "Orders received")
	assert.NotContains(t, body, "Active listings")

	body = render(pages.adminDashboard, rbac.Actor{ID: "a1", Role: rbac.RoleAdmin, Status: rbac.StatusActive})
	assert.Contains(t, body, "42")
}
