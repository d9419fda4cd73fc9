package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/database/dbtest"
	"lunara/internal/kidsession"
	"lunara/internal/models"
	"lunara/internal/security"
	"lunara/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	server *httptest.Server
	today  string
}

func newTestApp(t *testing.T, loginRate int) *testApp {
	t.Helper()

	db := dbtest.New(t)
	logger := zap.NewNop().Sugar()
	clock := service.SystemClock(time.UTC)

	auth := service.NewAuthService(db, 24*time.Hour, clock, logger)
	families := service.NewFamilyService(db, clock, logger)
	moons := service.NewMoonService(db, clock, logger)
	schedule := service.NewScheduleService(db, moons, clock, logger)
	shop := service.NewShopService(db, logger)
	invites := service.NewInviteService(db, nil, clock, logger)
	holidays := service.NewHolidayService(db)

	cookies := security.CookieOptions{}
	kids, err := kidsession.NewStore(strings.Repeat("k", 32), time.Hour, cookies)
	require.NoError(t, err)
	csrf := security.NewCSRFGenerator("test-csrf-secret")

	handler := NewRouter(Router{
		Middleware:   NewMiddleware(access.NewResolver(auth, kids), kids, csrf, logger),
		Auth:         NewAuthHandler(auth, cookies, csrf, nil, "", logger),
		Kid:          NewKidHandler(families, schedule, moons, shop, kids, logger),
		Parent:       NewParentHandler(families, invites, holidays, logger),
		Schedule:     NewScheduleHandler(schedule, moons, logger),
		Shop:         NewShopHandler(shop, logger),
		LoginLimiter: security.NewRateLimiter(loginRate, time.Minute),
		Logger:       logger,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testApp{server: server, today: clock.TodayString()}
}

// browser returns a client with its own cookie jar that does not follow redirects
func (a *testApp) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) call(t *testing.T, c *http.Client, method, path string, body any, csrfToken string) (*http.Response, envelope) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set(CSRFHeaderName, csrfToken)
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

type parent struct {
	client *http.Client
	csrf   string
	family models.Family
}

func (a *testApp) registerParent(t *testing.T, email, name string) *parent {
	t.Helper()
	p := &parent{client: a.browser(t)}

	resp, env := a.call(t, p.client, http.MethodPost, "/api/auth/register",
		map[string]string{"email": email, "password": "correct-horse", "name": name}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	var session sessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.CSRFToken)
	p.csrf = session.CSRFToken

	resp, env = a.call(t, p.client, http.MethodGet, "/api/parent/families", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fams []models.Family
	require.NoError(t, json.Unmarshal(env.Data, &fams))
	require.Len(t, fams, 1)
	p.family = fams[0]
	return p
}

func (a *testApp) createKid(t *testing.T, p *parent, name, pin string) *models.Kid {
	t.Helper()
	resp, env := a.call(t, p.client, http.MethodPost, fmt.Sprintf("/api/parent/families/%d/kids", p.family.ID),
		map[string]string{"name": name, "pin": pin}, p.csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	var created createKidResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, pin, created.PIN)
	return created.Kid
}

func (a *testApp) kidLogin(t *testing.T, kid *models.Kid, pin string, remember bool) (*http.Client, *http.Response) {
	t.Helper()
	c := a.browser(t)
	resp, env := a.call(t, c, http.MethodPost, "/api/kid/login",
		map[string]any{"kidId": kid.ID, "pin": pin, "remember": remember}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	return c, resp
}

func (a *testApp) createItem(t *testing.T, p *parent, kid *models.Kid, title string) *models.ScheduleItem {
	t.Helper()
	resp, env := a.call(t, p.client, http.MethodPost, fmt.Sprintf("/api/parent/kids/%d/items", kid.ID),
		map[string]string{"title": title, "date": a.today}, p.csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	var item models.ScheduleItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	return &item
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestKidLoginSetsSessionCookie(t *testing.T) {
	app := newTestApp(t, 100)
	p := app.registerParent(t, "ada@example.com", "Ada")
	kid := app.createKid(t, p, "Kit", "1234")

	_, resp := app.kidLogin(t, kid, "1234", true)
	cookie := findCookie(resp, kidsession.CookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(time.Hour/time.Second), cookie.MaxAge)

	_, resp = app.kidLogin(t, kid, "1234", false)
	cookie = findCookie(resp, kidsession.CookieName)
	require.NotNil(t, cookie)
	assert.Zero(t, cookie.MaxAge)

	resp, env := app.call(t, app.browser(t), http.MethodPost, "/api/kid/login",
		map[string]any{"kidId": kid.ID, "pin": "9999"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Nil(t, findCookie(resp, kidsession.CookieName))
}

func TestKidRoutingPolicy(t *testing.T) {
	app := newTestApp(t, 100)
	p := app.registerParent(t, "ada@example.com", "Ada")
	kit := app.createKid(t, p, "Kit", "1234")
	kai := app.createKid(t, p, "Kai", "5678")
	home := fmt.Sprintf("/kid/%d", kit.ID)

	c, _ := app.kidLogin(t, kit, "1234", false)

	for _, path := range []string{"/parent", "/parent/settings", "/api/parent/families", fmt.Sprintf("/kid/%d", kai.ID)} {
		resp, _ := app.call(t, c, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, home, resp.Header.Get("Location"), path)
	}

	// A forged parent cookie does not lift the policy.
	base, err := url.Parse(app.server.URL)
	require.NoError(t, err)
	c.Jar.SetCookies(base, []*http.Cookie{{Name: SessionCookieName, Value: "forged", Path: "/"}})
	resp, _ := app.call(t, c, http.MethodGet, "/api/parent/families", nil, "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, home, resp.Header.Get("Location"))

	resp, env := app.call(t, c, http.MethodGet, home, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	var view struct {
		Kid models.Kid `json:"kid"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, kit.ID, view.Kid.ID)

	// A parent session takes precedence over a leftover kid cookie.
	resp, env = app.call(t, p.client, http.MethodPost, "/api/kid/login", map[string]any{"kidId": kit.ID, "pin": "1234"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	resp, _ = app.call(t, p.client, http.MethodGet, fmt.Sprintf("/kid/%d", kai.ID), nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCrossKidItemIsRejected(t *testing.T) {
	app := newTestApp(t, 100)
	p := app.registerParent(t, "ada@example.com", "Ada")
	kit := app.createKid(t, p, "Kit", "1234")
	kai := app.createKid(t, p, "Kai", "5678")
	item := app.createItem(t, p, kai, "Fractions worksheet")

	kitBrowser, _ := app.kidLogin(t, kit, "1234", false)
	resp, env := app.call(t, kitBrowser, http.MethodPost, fmt.Sprintf("/api/items/%d/done", item.ID),
		map[string]bool{"done": true}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, envelope{Success: false, Error: "Unauthorized or Item Not Found"}, envelope{Success: env.Success, Error: env.Error})

	resp, _ = app.call(t, kitBrowser, http.MethodGet, fmt.Sprintf("/api/kids/%d/moons", kai.ID), nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	kaiBrowser, _ := app.kidLogin(t, kai, "5678", false)
	resp, env = app.call(t, kaiBrowser, http.MethodPost, fmt.Sprintf("/api/items/%d/done", item.ID),
		map[string]bool{"done": true}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	var done service.ItemDoneResult
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.True(t, done.Done)
	assert.Positive(t, done.Awarded)

	resp, env = app.call(t, p.client, http.MethodPost, fmt.Sprintf("/api/items/%d/done", item.ID),
		map[string]bool{"done": true}, p.csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Zero(t, done.Awarded)

	other := app.registerParent(t, "bo@example.com", "Bo")
	resp, env = app.call(t, other.client, http.MethodPost, fmt.Sprintf("/api/items/%d/done", item.ID),
		map[string]bool{"done": false}, other.csrf)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized or Item Not Found", env.Error)
}

func TestParentMutationsRequireCSRFToken(t *testing.T) {
	app := newTestApp(t, 100)
	p := app.registerParent(t, "ada@example.com", "Ada")

	resp, env := app.call(t, p.client, http.MethodPost, "/api/parent/families", map[string]string{"name": "Co-op"}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, ErrCSRF, env.Error)

	resp, _ = app.call(t, p.client, http.MethodPost, "/api/parent/families", map[string]string{"name": "Co-op"}, "not-the-token")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = app.call(t, p.client, http.MethodPost, "/api/parent/families", map[string]string{"name": "Co-op"}, p.csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	resp, env = app.call(t, p.client, http.MethodGet, "/api/parent/csrf", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, p.csrf, session.CSRFToken)
}

func TestParentRoutesRequireParentSession(t *testing.T) {
	app := newTestApp(t, 100)

	resp, env := app.call(t, app.browser(t), http.MethodGet, "/api/parent/families", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	resp, _ = app.call(t, app.browser(t), http.MethodGet, "/api/kids/1/moons", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInviteCannotBeReused(t *testing.T) {
	app := newTestApp(t, 100)
	ada := app.registerParent(t, "ada@example.com", "Ada")
	bo := app.registerParent(t, "bo@example.com", "Bo")
	cy := app.registerParent(t, "cy@example.com", "Cy")

	resp, env := app.call(t, ada.client, http.MethodPost, fmt.Sprintf("/api/parent/families/%d/invites", ada.family.ID),
		map[string]string{"email": "Bo@Example.com"}, ada.csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	var invite models.FamilyInvite
	require.NoError(t, json.Unmarshal(env.Data, &invite))
	require.NotEmpty(t, invite.Code)

	resp, env = app.call(t, cy.client, http.MethodPost, "/api/parent/invites/accept", map[string]string{"code": invite.Code}, cy.csrf)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, env.Error)

	resp, env = app.call(t, bo.client, http.MethodPost, "/api/parent/invites/accept", map[string]string{"code": invite.Code}, bo.csrf)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	resp, env = app.call(t, bo.client, http.MethodPost, "/api/parent/invites/accept", map[string]string{"code": invite.Code}, bo.csrf)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Invalid or expired invite", env.Error)

	resp, env = app.call(t, bo.client, http.MethodGet, fmt.Sprintf("/api/parent/families/%d", ada.family.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
}

func TestLoginIsRateLimited(t *testing.T) {
	app := newTestApp(t, 3)
	c := app.browser(t)

	for i := 0; i < 3; i++ {
		resp, _ := app.call(t, c, http.MethodPost, "/api/kid/login", map[string]any{"kidId": 1, "pin": "0000"}, "")
		assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
	}

	resp, env := app.call(t, c, http.MethodPost, "/api/auth/login", map[string]string{"email": "x@example.com", "password": "whatever"}, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, ErrTooManyRequests, env.Error)
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	app := newTestApp(t, 100)

	resp, err := http.Get(app.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}
