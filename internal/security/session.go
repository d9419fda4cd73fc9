package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GenerateSessionID creates a new UUID for session identification
func GenerateSessionID() string {
	return uuid.New().String()
}

// IsSessionID reports whether s has the shape of a parent session id
func IsSessionID(s string) bool {
	return uuid.Validate(s) == nil
}

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	// Direct TLS connection
	if r.TLS != nil {
		return true
	}

	// Behind reverse proxy (nginx, Caddy, load balancer, etc.)
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}

	return r.URL != nil && r.URL.Scheme == "https"
}

// CookieOptions controls how session cookies are written
type CookieOptions struct {
	// Production forces the Secure flag regardless of the request scheme.
	Production bool
}

func (o CookieOptions) secure(r *http.Request) bool {
	return o.Production || IsSecureRequest(r)
}

// CreateSessionCookie creates an HttpOnly, SameSite=Lax cookie scoped to "/".
// A zero maxAge yields a browser-session cookie with no expiry attributes.
func (o CookieOptions) CreateSessionCookie(r *http.Request, name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.secure(r),
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = time.Now().Add(maxAge)
	}
	return c
}

// CreateDeleteCookie creates a cookie that instructs the browser to drop name
func (o CookieOptions) CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.secure(r),
		SameSite: http.SameSiteLaxMode,
	}
}
