package claims

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubStore struct {
	mu     sync.Mutex
	actors map[string]rbac.Actor
	err    error
	reads  int
}

func (s *stubStore) FindActor(ctx context.Context, id string) (rbac.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return rbac.Actor{}, s.err
	}
	a, ok := s.actors[id]
	if !ok {
		return rbac.Actor{}, shared.ErrUserNotFound
	}
	return a, nil
}

func (s *stubStore) set(a rbac.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[a.ID] = a
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestIssuer(t *testing.T, c *clock) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testSecret, 5*time.Minute)
	require.NoError(t, err)
	if c != nil {
		iss.now = c.now
	}
	return iss
}

var buyer = rbac.Actor{ID: "usr_buyer", Role: rbac.RoleUser, Status: rbac.StatusActive}

func TestMintParseRoundTrip(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)

	tok, err := iss.Mint(buyer)
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(5*time.Minute), tok.Claims.ExpiresAt)

	parsed, err := iss.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, tok.Claims, parsed)
	assert.Equal(t, buyer, parsed.Actor())
}

func TestParseRejectsExpired(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	c.t = c.t.Add(5*time.Minute + time.Second)
	_, err = iss.Parse(tok.Value)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestParseRejectsTamperedAndForeign(t *testing.T) {
	iss := newTestIssuer(t, nil)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   buyer.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role:          string(rbac.RoleSuperAdmin),
		AccountStatus: string(rbac.StatusActive),
	})
	otherSecret, err := forged.SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, forged.Claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"swapped payload": parts[0] + "." + strings.Split(otherSecret, ".")[1] + "." + parts[2],
		"other secret":    otherSecret,
		"alg none":        unsigned,
		"garbage":         "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseRejectsUnknownRole(t *testing.T) {
	iss := newTestIssuer(t, nil)
	tok, err := iss.Mint(rbac.Actor{ID: "x", Role: "OWNER", Status: rbac.StatusActive})
	require.NoError(t, err)
	_, err = iss.Parse(tok.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerValidatesInput(t *testing.T) {
	_, err := NewIssuer("short", time.Minute)
	assert.Error(t, err)
	_, err = NewIssuer(testSecret, 0)
	assert.Error(t, err)
}

func TestRefreshRereadsSystemOfRecord(t *testing.T) {
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, c)
	store := &stubStore{actors: map[string]rbac.Actor{buyer.ID: buyer}}
	ref := NewRefresher(iss, store, nil, time.Minute)

	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	store.set(rbac.Actor{ID: buyer.ID, Role: rbac.RoleSeller, Status: rbac.StatusActive})
	c.t = c.t.Add(10 * time.Second)
	next, err := ref.Refresh(context.Background(), tok.Claims, TriggerUpdate)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSeller, next.Claims.Role)
	assert.Equal(t, rbac.RoleUser, tok.Claims.Role, "old claims must not change")
	assert.NotEqual(t, tok.Claims.ID, next.Claims.ID)

	store.set(rbac.Actor{ID: buyer.ID, Role: rbac.RoleSeller, Status: rbac.StatusSuspended})
	next, err = ref.Refresh(context.Background(), next.Claims, TriggerCadence)
	require.NoError(t, err)
	assert.Equal(t, rbac.StatusSuspended, next.Claims.Status)
}

func TestRefreshIsIdempotent(t *testing.T) {
	iss := newTestIssuer(t, nil)
	store := &stubStore{actors: map[string]rbac.Actor{buyer.ID: buyer}}
	ref := NewRefresher(iss, store, nil, time.Minute)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	first, err := ref.Refresh(context.Background(), tok.Claims, TriggerUpdate)
	require.NoError(t, err)
	second, err := ref.Refresh(context.Background(), first.Claims, TriggerUpdate)
	require.NoError(t, err)
	assert.Equal(t, first.Claims.Actor(), second.Claims.Actor())
	assert.Equal(t, 2, store.reads)
}

func TestRefreshSubjectGone(t *testing.T) {
	iss := newTestIssuer(t, nil)
	ref := NewRefresher(iss, &stubStore{actors: map[string]rbac.Actor{}}, nil, time.Minute)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	_, err = ref.Refresh(context.Background(), tok.Claims, TriggerUpdate)
	assert.ErrorIs(t, err, ErrSubjectGone)
}

func TestRefreshPropagatesStoreFailure(t *testing.T) {
	iss := newTestIssuer(t, nil)
	down := errors.New("connection refused")
	ref := NewRefresher(iss, &stubStore{err: down}, nil, time.Minute)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	_, err = ref.Refresh(context.Background(), tok.Claims, TriggerUpdate)
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrSubjectGone)
	_, isDenial := shared.AsDenial(err)
	assert.False(t, isDenial)
}

func TestDueCadenceAndStaleMarker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	invalidations := shared.NewInvalidationLog(nil, client, 5*time.Minute)

	iss := newTestIssuer(t, nil)
	ref := NewRefresher(iss, &stubStore{}, invalidations, 30*time.Second)
	ctx := context.Background()

	tok, err := iss.Mint(buyer)
	require.NoError(t, err)
	due, err := ref.Due(ctx, tok.Claims)
	require.NoError(t, err)
	assert.False(t, due)

	require.NoError(t, invalidations.Record(ctx, buyer.ID, shared.InvalidationSuspended))
	due, err = ref.Due(ctx, tok.Claims)
	require.NoError(t, err)
	assert.True(t, due)

	old := tok.Claims
	old.IssuedAt = time.Now().Add(-time.Minute)
	old.Subject = "usr_other"
	due, err = ref.Due(ctx, old)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRefresherClampsInterval(t *testing.T) {
	iss := newTestIssuer(t, nil)
	assert.Equal(t, 5*time.Minute, NewRefresher(iss, &stubStore{}, nil, time.Hour).Interval())
	assert.Equal(t, 5*time.Minute, NewRefresher(iss, &stubStore{}, nil, 0).Interval())
}

func newLoader(t *testing.T, c *clock, store *stubStore) (*Loader, *Issuer) {
	t.Helper()
	iss := newTestIssuer(t, c)
	return &Loader{
		Issuer:    iss,
		Refresher: NewRefresher(iss, store, nil, 30*time.Second),
		Transport: NewTransport("gb_claims", false),
	}, iss
}

func captureClaims(got *Claims, present *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *present = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoaderPassesFreshClaims(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	store := &stubStore{actors: map[string]rbac.Actor{buyer.ID: buyer}}
	loader, iss := newLoader(t, c, store)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	var got Claims
	var present bool
	req := httptest.NewRequest(http.MethodGet, "/dashboard/user", nil)
	req.AddCookie(&http.Cookie{Name: "gb_claims", Value: tok.Value})
	rec := httptest.NewRecorder()
	loader.Middleware(captureClaims(&got, &present)).ServeHTTP(rec, req)

	assert.True(t, present)
	assert.Equal(t, tok.Claims, got)
	assert.Equal(t, 0, store.reads)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoaderRefreshesWhenDue(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	store := &stubStore{actors: map[string]rbac.Actor{buyer.ID: buyer}}
	loader, iss := newLoader(t, c, store)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)

	store.set(rbac.Actor{ID: buyer.ID, Role: rbac.RoleUser, Status: rbac.StatusBanned})
	c.t = c.t.Add(time.Minute)

	var got Claims
	var present bool
	req := httptest.NewRequest(http.MethodGet, "/dashboard/user", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	rec := httptest.NewRecorder()
	loader.Middleware(captureClaims(&got, &present)).ServeHTTP(rec, req)

	require.True(t, present)
	assert.Equal(t, rbac.StatusBanned, got.Status)
	assert.NotEmpty(t, rec.Header().Get(RefreshedTokenHeader))
	assert.Equal(t, 1, store.reads)
}

func TestLoaderDropsClaimsForDeletedSubject(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	store := &stubStore{actors: map[string]rbac.Actor{}}
	loader, iss := newLoader(t, c, store)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)

	var got Claims
	present := true
	req := httptest.NewRequest(http.MethodGet, "/dashboard/user", nil)
	req.AddCookie(&http.Cookie{Name: "gb_claims", Value: tok.Value})
	rec := httptest.NewRecorder()
	loader.Middleware(captureClaims(&got, &present)).ServeHTTP(rec, req)

	assert.False(t, present)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestLoaderStoreFailureIsNotAnonymous(t *testing.T) {
	c := &clock{t: time.Now().UTC()}
	store := &stubStore{err: errors.New("db down")}
	loader, iss := newLoader(t, c, store)
	tok, err := iss.Mint(buyer)
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)

	called := false
	req := httptest.NewRequest(http.MethodGet, "/dashboard/user", nil)
	req.AddCookie(&http.Cookie{Name: "gb_claims", Value: tok.Value})
	rec := httptest.NewRecorder()
	loader.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTransportPrefersBearer(t *testing.T) {
	tr := NewTransport("gb_claims", true)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "gb_claims", Value: "cookie-token"})
	raw, bearer := tr.Read(req)
	assert.Equal(t, "cookie-token", raw)
	assert.False(t, bearer)

	req.Header.Set("Authorization", "bearer header-token")
	raw, bearer = tr.Read(req)
	assert.Equal(t, "header-token", raw)
	assert.True(t, bearer)
}
