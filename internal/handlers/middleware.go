package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/kidsession"
	"lunara/internal/models"
	"lunara/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	resolver *access.Resolver
	kids     *kidsession.Store
	csrf     *security.CSRFGenerator
	logger   *zap.SugaredLogger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(resolver *access.Resolver, kids *kidsession.Store, csrf *security.CSRFGenerator, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{
		resolver: resolver,
		kids:     kids,
		csrf:     csrf,
		logger:   logger,
	}
}

// RequireParent is middleware that requires a valid parent session. The
// parent's Standard mode and user are added to the request context.
func (m *Middleware) RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := m.resolver.Parent(r)
		if err != nil {
			respondWithError(w, r, m.logger, err)
			return
		}
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, apperr.Result{Error: ErrUnauthorized})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = access.WithMode(ctx, access.Standard{UserID: user.ID})
		next(w, r.WithContext(ctx))
	}
}

// ResolveAccess is middleware that requires either a parent or a kid identity
// and stores the resulting access mode in the request context.
func (m *Middleware) ResolveAccess(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := m.resolver.Resolve(r)
		if err != nil {
			respondWithError(w, r, m.logger, err)
			return
		}
		next(w, r.WithContext(access.WithMode(r.Context(), mode)))
	}
}

// ResolveKidAccess is ResolveAccess for routes addressing one kid through the
// {kidID} path value. A kid session for a different kid is rejected.
func (m *Middleware) ResolveKidAccess(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kidID, err := pathID(r, "kidID")
		if err != nil {
			respondWithError(w, r, m.logger, err)
			return
		}
		mode, err := m.resolver.ResolveForKid(r, kidID)
		if err != nil {
			respondWithError(w, r, m.logger, err)
			return
		}
		next(w, r.WithContext(access.WithMode(r.Context(), mode)))
	}
}

// CSRF rejects unsafe requests that carry a parent session cookie without a
// matching X-CSRF-Token header.
func (m *Middleware) CSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next(w, r)
			return
		}

		if !m.csrf.ValidateToken(cookie.Value, r.Header.Get(CSRFHeaderName)) {
			writeJSON(w, http.StatusForbidden, apperr.Result{Error: ErrCSRF})
			return
		}
		next(w, r)
	}
}

// KidRoutingPolicy keeps a browser holding a kid session inside that kid's
// portal: parent paths and other kids' portals redirect to /kid/{own}. It
// reads cookies only. A well-formed parent session cookie disables the
// policy; whether that session is still valid is checked by the API itself.
func (m *Middleware) KidRoutingPolicy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(SessionCookieName); err == nil && security.IsSessionID(c.Value) {
			next.ServeHTTP(w, r)
			return
		}

		session := m.kids.Read(r)
		if session == nil {
			next.ServeHTTP(w, r)
			return
		}

		own := "/kid/" + session.KidID
		path := r.URL.Path

		if path == "/parent" || strings.HasPrefix(path, "/parent/") || strings.HasPrefix(path, "/api/parent/") {
			http.Redirect(w, r, own, http.StatusSeeOther)
			return
		}

		if rest, ok := strings.CutPrefix(path, "/kid/"); ok {
			target, _, _ := strings.Cut(rest, "/")
			if _, err := strconv.ParseInt(target, 10, 64); err == nil && target != session.KidID {
				http.Redirect(w, r, own, http.StatusSeeOther)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects requests from clients that exceed limiter
func RateLimit(limiter *security.RateLimiter, logger *zap.SugaredLogger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := security.GetClientIP(r)
			if !limiter.Allow(ip) {
				logger.Warnw("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, apperr.Result{Error: ErrTooManyRequests})
				return
			}
			next(w, r)
		}
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// Logging middleware logs HTTP requests
func Logging(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)

			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeaders sets conservative security headers on every response
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set("Cache-Control", "no-store")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// modeFrom returns the access mode stored by RequireParent or ResolveAccess
func modeFrom(r *http.Request) (access.Mode, error) {
	mode, ok := access.FromContext(r.Context())
	if !ok {
		return nil, apperr.New(apperr.ErrUnauthorized, ErrUnauthorized)
	}
	return mode, nil
}

// kidScope returns the mode and kid id for a route behind ResolveKidAccess
func kidScope(r *http.Request) (access.Mode, int64, error) {
	mode, err := modeFrom(r)
	if err != nil {
		return nil, 0, err
	}
	kidID, err := pathID(r, "kidID")
	if err != nil {
		return nil, 0, err
	}
	return mode, kidID, nil
}
