package httpx

import (
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"net/http"
	"strconv"
	"time"
)

// RequestLogger puts a request scoped logger on the context and writes one
// access line per request.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		ev := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			ev = hlog.FromRequest(r).Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("http")
	})
	withID := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := middleware.GetReqID(r.Context()); id != "" {
				l := zerolog.Ctx(r.Context())
				l.UpdateContext(func(c zerolog.Context) zerolog.Context { return c.Str("request_id", id) })
			}
			next.ServeHTTP(w, r)
		})
	}
	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(log)(withID(access(next)))
	}
}

func Metrics(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			metrics.HTTPRequests.WithLabelValues(service, route, r.Method, strconv.Itoa(code)).Inc()
			metrics.HTTPDuration.WithLabelValues(service, route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// RequireS2S guards service-to-service routes with the shared key.
func RequireS2S(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.CheckS2S(r.Header.Get("Authorization"), key); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guard authenticates admin bearer tokens and applies the capability table.
type Guard struct {
	Verifier *auth.Verifier
	Policy   auth.Policy
}

func (g *Guard) RequireCapability(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, r, apperr.New(apperr.KindUnauthorized, nil))
				return
			}
			claims, err := g.Verifier.Verify(token)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("bearer rejected")
				writeError(w, r, apperr.New(apperr.KindUnauthorized, nil))
				return
			}
			if err := g.Policy.Allow(claims, resource, action); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// actorLog is the request logger tagged with the admin subject, if any.
func actorLog(r *http.Request) *zerolog.Logger {
	l := hlog.FromRequest(r)
	if c, ok := auth.ClaimsFrom(r.Context()); ok && c.Subject != "" {
		tagged := l.With().Str("actor", c.Subject).Logger()
		return &tagged
	}
	return l
}
