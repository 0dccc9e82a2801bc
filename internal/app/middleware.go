package app

import (
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/gate"
	"github.com/gadgetbay/gadgetbay/internal/observability"
	"github.com/gadgetbay/gadgetbay/internal/platform/httpx"
	"github.com/gadgetbay/gadgetbay/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger       *slog.Logger
	Config       *Config
	ClaimsLoader *claims.Loader
	Gate         *gate.Gate
	CSRFManager  *shared.CSRFManager
	Metrics      *observability.Metrics
}

var loginPaths = map[string]bool{
	gate.LoginPath:    true,
	"/api/auth/login": true,
}

// MiddlewareStack installs the middleware chain. The claims loader runs before
// the gate and CSRF checks because both read the request's claims.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	perMinute := 120
	loginPerMinute := 10
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMinute > 0 {
			perMinute = cfg.Config.RateLimitPerMinute
		}
		if cfg.Config.LoginRatePerMinute > 0 {
			loginPerMinute = cfg.Config.LoginRatePerMinute
		}
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(perMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		loginLimiter(loginPerMinute),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	if cfg.ClaimsLoader != nil {
		middlewares = append(middlewares, cfg.ClaimsLoader.Middleware)
	}
	if cfg.Gate != nil {
		var recorder gate.OutcomeRecorder
		if cfg.Metrics != nil {
			recorder = cfg.Metrics
		}
		middlewares = append(middlewares, gate.Middleware(cfg.Gate, logger, recorder))
	}
	if cfg.CSRFManager != nil {
		middlewares = append(middlewares, csrfMiddleware(cfg.CSRFManager, cookieName(cfg), logger))
	}
	return middlewares
}

func cookieName(cfg MiddlewareConfig) string {
	if cfg.ClaimsLoader != nil && cfg.ClaimsLoader.Transport != nil {
		return cfg.ClaimsLoader.Transport.CookieName()
	}
	if cfg.Config != nil {
		return cfg.Config.ClaimsCookie
	}
	return ""
}

// loginLimiter applies a stricter per-IP budget to credential submission.
func loginLimiter(perMinute int) func(http.Handler) http.Handler {
	limit := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too many sign-in attempts", "try again in a minute")
		}),
	)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && loginPaths[r.URL.Path] {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// csrfMiddleware enforces double-submit tokens on unsafe requests that could
// ride a browser's cookies. Bearer requests and JSON requests carrying no
// claims cookie are exempt.
func csrfMiddleware(manager *shared.CSRFManager, claimsCookie string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if claims.IsBearer(r.Context()) || (isJSON(r) && !hasCookie(r, claimsCookie)) {
				next.ServeHTTP(w, r)
				return
			}
			if err := manager.VerifyToken(r, shared.TokenFromRequest(r)); err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path))
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func hasCookie(r *http.Request, name string) bool {
	if name == "" {
		return false
	}
	c, err := r.Cookie(name)
	return err == nil && c.Value != ""
}
