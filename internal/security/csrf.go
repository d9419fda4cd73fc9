package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// csrfContext separates CSRF MACs from any other use of the same secret
const csrfContext = "lunara/csrf/v1\x00"

// ErrNoSession is returned when a CSRF token is requested without a parent session
var ErrNoSession = errors.New("parent session id is required")

// CSRFGenerator derives per-session CSRF tokens as HMAC-SHA256(secret, session id).
// Any replica holding the secret can check a token.
type CSRFGenerator struct {
	secret []byte
}

// NewCSRFGenerator creates a generator keyed by secret
func NewCSRFGenerator(secret string) *CSRFGenerator {
	return &CSRFGenerator{secret: []byte(secret)}
}

func (g *CSRFGenerator) mac(sessionID string) []byte {
	h := hmac.New(sha256.New, g.secret)
	h.Write([]byte(csrfContext))
	h.Write([]byte(sessionID))
	return h.Sum(nil)
}

// GenerateToken returns the token for a parent session id
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	return base64.RawURLEncoding.EncodeToString(g.mac(sessionID)), nil
}

// ValidateToken reports whether token belongs to sessionID
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, g.mac(sessionID))
}
