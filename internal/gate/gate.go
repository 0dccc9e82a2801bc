// Package gate decides, from the request path and the caller's claims alone,
// whether a request may reach a handler.
package gate

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// Well-known routes.
const (
	LoginPath           = "/auth/login"
	SuspendedPath       = "/suspended"
	BannedPath          = "/banned"
	ForbiddenPath       = "/forbidden"
	UserLandingPath     = "/dashboard/user"
	SellerLandingPath   = "/dashboard/seller"
	AdminLandingPath    = "/dashboard/admin"
	CallbackParam       = "callbackUrl"
	apiPrefix           = "/api/"
	signOutAPIPrefix    = "/api/auth"
	signOutPagePath     = "/auth/logout"
	defaultStaticPrefix = "/static/"
)

// Outcome is what the adapter must do with the request.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
	Forbid
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Forbid:
		return "forbid"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict. Location is set for Redirect; Status and
// Code are set for Forbid.
type Decision struct {
	Outcome  Outcome
	Location string
	Status   int
	Code     shared.Code
}

// Rule restricts paths matching Pattern to the Allowed roles. Redirect is
// where a signed-in page visitor without an allowed role is sent.
type Rule struct {
	Pattern  *regexp.Regexp
	Allowed  []rbac.Role
	Redirect string
}

var (
	authRoutes = regexp.MustCompile(`^/auth/(login|register|reset-password)(/|$)`)
	allRoles   = rbac.AllRoles()
	staffRoles = []rbac.Role{rbac.RoleAdmin, rbac.RoleSuperAdmin}
	sellerUp   = []rbac.Role{rbac.RoleSeller, rbac.RoleAdmin, rbac.RoleSuperAdmin}
)

// DefaultRules is the route table, checked in order.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: regexp.MustCompile(`^/dashboard/admin(/|$)`), Allowed: staffRoles, Redirect: ForbiddenPath},
		{Pattern: regexp.MustCompile(`^/api/admin(/|$)`), Allowed: staffRoles, Redirect: ForbiddenPath},
		{Pattern: regexp.MustCompile(`^/dashboard/seller(/|$)`), Allowed: sellerUp, Redirect: ForbiddenPath},
		{Pattern: regexp.MustCompile(`^/api/seller(/|$)`), Allowed: sellerUp, Redirect: ForbiddenPath},
		{Pattern: regexp.MustCompile(`^/dashboard/user(/|$)`), Allowed: allRoles, Redirect: LoginPath},
		{Pattern: regexp.MustCompile(`^/api/user(/|$)`), Allowed: allRoles, Redirect: LoginPath},
	}
}

// Gate holds an immutable rule table.
type Gate struct {
	rules  []Rule
	exempt []string
}

// New builds a Gate over rules. Paths with an exempt prefix skip the account
// status confinement so status pages can load their assets.
func New(rules []Rule, exempt ...string) *Gate {
	r := make([]Rule, len(rules))
	copy(r, rules)
	if len(exempt) == 0 {
		exempt = []string{defaultStaticPrefix}
	}
	return &Gate{rules: r, exempt: exempt}
}

// Default returns a Gate over DefaultRules.
func Default() *Gate {
	return New(DefaultRules())
}

// LandingFor returns the post-login landing route for role.
func LandingFor(role rbac.Role) string {
	switch role {
	case rbac.RoleSuperAdmin, rbac.RoleAdmin:
		return AdminLandingPath
	case rbac.RoleSeller:
		return SellerLandingPath
	default:
		return UserLandingPath
	}
}

// IsAPI reports whether path is API-shaped.
func IsAPI(path string) bool {
	return strings.HasPrefix(path, apiPrefix)
}

// Decide evaluates a request. actor is nil for anonymous requests. It never
// checks ownership.
func (g *Gate) Decide(path string, actor *rbac.Actor) Decision {
	if actor != nil {
		switch actor.Status {
		case rbac.StatusSuspended:
			if !g.confinementExempt(path, SuspendedPath) {
				return Decision{Outcome: Redirect, Location: SuspendedPath}
			}
		case rbac.StatusBanned:
			if !g.confinementExempt(path, BannedPath) {
				return Decision{Outcome: Redirect, Location: BannedPath}
			}
		}
		if authRoutes.MatchString(path) {
			return Decision{Outcome: Redirect, Location: LandingFor(actor.Role)}
		}
	}

	for _, rule := range g.rules {
		if !rule.Pattern.MatchString(path) {
			continue
		}
		if actor == nil {
			if IsAPI(path) {
				return Decision{Outcome: Forbid, Status: http.StatusUnauthorized, Code: shared.CodeUnauthenticated}
			}
			return Decision{Outcome: Redirect, Location: loginURL(path)}
		}
		if !rbac.IsOneOfRoles(actor.Role, rule.Allowed) {
			if IsAPI(path) {
				return Decision{Outcome: Forbid, Status: http.StatusForbidden, Code: shared.CodeForbidden}
			}
			return Decision{Outcome: Redirect, Location: rule.Redirect}
		}
		return Decision{Outcome: Allow}
	}
	return Decision{Outcome: Allow}
}

func (g *Gate) confinementExempt(path, statusRoute string) bool {
	if strings.HasPrefix(path, statusRoute) || strings.HasPrefix(path, signOutAPIPrefix) || path == signOutPagePath {
		return true
	}
	for _, prefix := range g.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func loginURL(path string) string {
	q := url.Values{}
	q.Set(CallbackParam, path)
	return LoginPath + "?" + q.Encode()
}
