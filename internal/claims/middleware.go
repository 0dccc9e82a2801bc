package claims

import (
	"errors"
	"log/slog"
	"net/http"
)

// RefreshRecorder observes refresh outcomes.
type RefreshRecorder interface {
	ObserveRefresh(result string)
}

// Loader parses the request token, refreshes it when due and stores the
// resulting claims in the request context.
type Loader struct {
	Issuer    *Issuer
	Refresher *Refresher
	Transport *Transport
	Logger    *slog.Logger
	Recorder  RefreshRecorder
}

// Middleware returns the HTTP middleware. Requests without usable claims
// continue anonymously; the perimeter gate decides what they may reach.
func (l *Loader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, bearer := l.Transport.Read(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		c, err := l.Issuer.Parse(raw)
		if err != nil {
			if !bearer {
				l.Transport.Clear(w)
			}
			l.debug("claims rejected", r, slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		due, err := l.Refresher.Due(r.Context(), c)
		if err != nil {
			// The stale marker is only a hint; fall back to the cadence.
			l.log().Warn("claims stale check", slog.Any("error", err))
			due = false
		}
		if due {
			tok, err := l.Refresher.Refresh(r.Context(), c, TriggerCadence)
			switch {
			case errors.Is(err, ErrSubjectGone):
				l.observe("subject_gone")
				if !bearer {
					l.Transport.Clear(w)
				}
				next.ServeHTTP(w, r)
				return
			case err != nil:
				l.observe("error")
				l.log().Error("claims refresh", slog.String("subject", c.Subject), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			l.observe("refreshed")
			l.Transport.Write(w, tok, bearer)
			c = tok.Claims
		}

		ctx := withBearer(WithClaims(r.Context(), c), bearer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (l *Loader) observe(result string) {
	if l.Recorder != nil {
		l.Recorder.ObserveRefresh(result)
	}
}

func (l *Loader) log() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Loader) debug(msg string, r *http.Request, attrs ...any) {
	l.log().Debug(msg, append([]any{slog.String("path", r.URL.Path)}, attrs...)...)
}
