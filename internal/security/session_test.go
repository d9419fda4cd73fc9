package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsSecureRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/", nil)
	if IsSecureRequest(r) {
		t.Error("plain HTTP request should not be secure")
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if !IsSecureRequest(r) {
		t.Error("proxied HTTPS request should be secure")
	}

	if !IsSecureRequest(httptest.NewRequest("GET", "https://example.com/", nil)) {
		t.Error("TLS request should be secure")
	}
}

func TestCreateSessionCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com/", nil)

	session := CookieOptions{}.CreateSessionCookie(r, "c", "v", 0)
	if session.MaxAge != 0 || !session.Expires.IsZero() {
		t.Errorf("zero maxAge should create a browser-session cookie, got MaxAge=%d Expires=%v", session.MaxAge, session.Expires)
	}
	if session.Secure {
		t.Error("cookie over plain HTTP outside production should not be Secure")
	}

	persistent := CookieOptions{Production: true}.CreateSessionCookie(r, "c", "v", 2*time.Hour)
	if persistent.MaxAge != 7200 {
		t.Errorf("MaxAge = %d, want 7200", persistent.MaxAge)
	}
	if !persistent.Secure || !persistent.HttpOnly || persistent.Path != "/" {
		t.Errorf("unexpected cookie flags: %+v", persistent)
	}

	del := CookieOptions{}.CreateDeleteCookie(r, "c")
	if del.MaxAge != -1 {
		t.Errorf("delete cookie MaxAge = %d, want -1", del.MaxAge)
	}
}

func TestIsSessionID(t *testing.T) {
	if !IsSessionID(GenerateSessionID()) {
		t.Error("generated session id should be recognised")
	}
	for _, s := range []string{"", "forged", "123", "not-a-uuid-but-has-dashes-in-it-00"} {
		if IsSessionID(s) {
			t.Errorf("IsSessionID(%q) = true, want false", s)
		}
	}
}
