// Package kidsession stores the kid identity in a signed browser cookie.
package kidsession

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lunara/internal/security"
)

// CookieName is the name of the kid session cookie
const CookieName = "lunara_kid_session"

// DefaultMaxAge is the lifetime of a remembered kid session
const DefaultMaxAge = 30 * 24 * time.Hour

const minSecretLen = 32

// ErrWeakSecret is returned when the signing secret is too short
var ErrWeakSecret = fmt.Errorf("kid session secret must be at least %d bytes", minSecretLen)

// KidSession is the identity carried by the cookie
type KidSession struct {
	KidID     string `json:"kidId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
}

// NumericID returns the kid id as stored in the database
func (s *KidSession) NumericID() (int64, bool) {
	id, err := strconv.ParseInt(s.KidID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type claims struct {
	KidSession
	jwt.RegisteredClaims
}

// Store creates and verifies kid session cookies
type Store struct {
	secret  []byte
	cookies security.CookieOptions
	maxAge  time.Duration
	now     func() time.Time
}

// NewStore builds a Store signing with secret. maxAge bounds every token,
// including browser-session cookies that carry no cookie expiry.
func NewStore(secret string, maxAge time.Duration, cookies security.CookieOptions) (*Store, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		secret:  []byte(secret),
		cookies: cookies,
		maxAge:  maxAge,
		now:     time.Now,
	}, nil
}

// MaxAge returns the persistent cookie lifetime
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}

// Create writes a kid session cookie. A zero maxAge creates a browser-session
// cookie; otherwise the cookie persists for maxAge.
func (s *Store) Create(w http.ResponseWriter, r *http.Request, kidID, name string, maxAge time.Duration) error {
	if kidID == "" {
		return errors.New("kid id is required")
	}

	now := s.now()
	lifetime := s.maxAge
	if maxAge > 0 {
		lifetime = maxAge
	}

	c := claims{
		KidSession: KidSession{KidID: kidID, Name: name, CreatedAt: now.UnixMilli()},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("failed to sign kid session: %w", err)
	}

	http.SetCookie(w, s.cookies.CreateSessionCookie(r, CookieName, token, maxAge))
	return nil
}

// Read returns the session in the request, or nil when the cookie is missing,
// malformed, not signed by this store, or expired.
func (s *Store) Read(r *http.Request) *KidSession {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return s.parse(cookie.Value)
}

func (s *Store) parse(value string) *KidSession {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	c := &claims{}
	token, err := parser.ParseWithClaims(value, c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid || c.KidID == "" {
		return nil
	}

	session := c.KidSession
	return &session
}

// Clear removes the kid session cookie
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.cookies.CreateDeleteCookie(r, CookieName))
}

// IsValidFor reports whether the request carries a session for kidID
func (s *Store) IsValidFor(r *http.Request, kidID string) bool {
	session := s.Read(r)
	return session != nil && session.KidID == kidID
}
