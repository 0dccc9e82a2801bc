package claims

import (
	"context"
	"net/http"
	"strings"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
)

// RefreshedTokenHeader carries a re-minted token back to Bearer clients.
const RefreshedTokenHeader = "X-Claims-Token"

// Transport moves tokens between requests and responses. Browsers use an
// HttpOnly cookie; API clients send Authorization: Bearer.
type Transport struct {
	cookieName string
	secure     bool
}

// NewTransport constructs a Transport.
func NewTransport(cookieName string, secure bool) *Transport {
	return &Transport{cookieName: cookieName, secure: secure}
}

// CookieName returns the cookie identifier used for claims.
func (t *Transport) CookieName() string {
	return t.cookieName
}

// Read returns the raw token and whether it came from a Bearer header.
func (t *Transport) Read(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	cookie, err := r.Cookie(t.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, false
}

// Write hands tok back to the client on the same channel it arrived on.
func (t *Transport) Write(w http.ResponseWriter, tok Token, bearer bool) {
	if bearer {
		w.Header().Set(RefreshedTokenHeader, tok.Value)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     t.cookieName,
		Value:    tok.Value,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  tok.Claims.ExpiresAt,
	})
}

// Clear removes the claims cookie.
func (t *Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type claimsContextKey struct{}

type bearerContextKey struct{}

// WithClaims stores the claims in context.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// FromContext extracts the claims from context.
func FromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(Claims)
	return c, ok
}

// ActorFromRequest adapts the request claims for rbac.Middleware.
func ActorFromRequest(r *http.Request) (rbac.Actor, bool) {
	c, ok := FromContext(r.Context())
	if !ok {
		return rbac.Actor{}, false
	}
	return c.Actor(), true
}

// IsBearer reports whether the request authenticated with a Bearer header.
func IsBearer(ctx context.Context) bool {
	b, _ := ctx.Value(bearerContextKey{}).(bool)
	return b
}

func withBearer(ctx context.Context, bearer bool) context.Context {
	return context.WithValue(ctx, bearerContextKey{}, bearer)
}
