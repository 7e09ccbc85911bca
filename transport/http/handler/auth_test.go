package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/auth/jwt"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/core/util/id"
	"github.com/kochabx/passport/log"
	middleware "github.com/kochabx/passport/middleware/http"
	"github.com/kochabx/passport/store/db"
	"github.com/kochabx/passport/store/redis"
	khttp "github.com/kochabx/passport/transport/http"
)

const (
	password      = "Passw0rd!"
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1n!pass"
)

type nopNotifier struct{}

func (nopNotifier) SendWelcome(context.Context, string, string, string) error { return nil }
func (nopNotifier) SendPasswordChanged(context.Context, string, string, string, string) error {
	return nil
}
func (nopNotifier) SendPasswordResetLink(context.Context, string, string, string, time.Duration) error {
	return nil
}
func (nopNotifier) SendPasswordResetSucceeded(context.Context, string, string, string, string) error {
	return nil
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T, limit int) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	client, err := db.New(db.Config{
		Driver: db.DriverSQLite,
		DSN:    "file:" + id.Hex() + "?mode=memory&cache=shared",
		Pool:   db.PoolConfig{MaxOpenConns: 1},
	}, db.WithLogger(log.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	dir, err := directory.NewGorm(client.DB(), directory.Config{ResetTokenSecret: "reset-secret", BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, dir.Migrate(ctx))
	require.NoError(t, directory.Seed(ctx, dir, directory.AdminConfig{Email: adminEmail, Password: adminPassword}))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions, err := session.NewManager(redis.Wrap(rdb), dir, session.Config{}, session.WithLogger(log.Nop()))
	require.NoError(t, err)
	codec, err := jwt.New(jwt.Config{Secret: "jwt-secret"})
	require.NoError(t, err)
	svc, err := auth.NewService(auth.Config{}, dir, sessions, codec, nopNotifier{}, auth.WithLogger(log.Nop()))
	require.NoError(t, err)

	r, err := khttp.NewEngine(khttp.Config{})
	require.NoError(t, err)
	NewAuthHandler(svc, true).Register(r.Group("/api"), Guards{
		Auth:      middleware.Auth(middleware.AuthConfig{Verifier: codec, Versions: dir, Logger: log.Nop()}),
		Admin:     middleware.RequireRoles(directory.RoleAdmin),
		RateLimit: middleware.RateLimit(middleware.RateLimitConfig{Limiter: rate.NewSlidingWindowLimiter(rdb, "rl:", time.Minute, limit), Logger: log.Nop()}),
	})
	return &api{t: t, router: r}
}

type call struct {
	method, path, body, token string
	cookies                   []*http.Cookie
	header                    http.Header
}

func (a *api) do(c call) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	assert.Equal(a.t, w.Code, env.StatusCode, "status code and envelope agree")
	return w, env
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.RefreshCookie {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", auth.RefreshCookie)
	return nil
}

func (a *api) login(email, pw string) (string, *http.Cookie) {
	a.t.Helper()
	w, env := a.do(call{method: http.MethodPost, path: "/api/auth/login", body: `{"email":"` + email + `","password":"` + pw + `"}`})
	require.True(a.t, env.Success, env.Message)
	var payload auth.TokenPayload
	require.NoError(a.t, json.Unmarshal(env.Data, &payload))
	return payload.Token, refreshCookie(a.t, w)
}

const signupBody = `{"email":"ada@example.com","password":"Passw0rd!","firstName":"Ada","lastName":"Lovelace"}`

func TestSignupSetsRefreshCookie(t *testing.T) {
	a := newAPI(t, 100)
	w, env := a.do(call{method: http.MethodPost, path: "/api/auth/signup", body: signupBody})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, auth.MsgSignupSuccessful, env.Message)

	var payload auth.TokenPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.NotEmpty(t, payload.Token)
	assert.Equal(t, []string{directory.RoleUser}, payload.Roles)

	ck := refreshCookie(t, w)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, "/", ck.Path)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), ck.Expires, time.Minute)

	_, dup := a.do(call{method: http.MethodPost, path: "/api/auth/signup", body: signupBody})
	assert.Equal(t, http.StatusConflict, dup.StatusCode)
	assert.Equal(t, auth.MsgEmailExists, dup.Message)
}

func TestRequestValidation(t *testing.T) {
	a := newAPI(t, 100)

	w, env := a.do(call{method: http.MethodPost, path: "/api/auth/signup", body: `{"email":"not-an-email","password":""}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "email")
	assert.Contains(t, env.Message, "password")

	w, env = a.do(call{method: http.MethodPost, path: "/api/auth/login", body: `{"email":`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgInvalidBody, env.Message)
}

func TestRefreshAndLogoutFlow(t *testing.T) {
	a := newAPI(t, 100)
	a.do(call{method: http.MethodPost, path: "/api/auth/signup", body: signupBody})
	_, original := a.login("ada@example.com", password)

	w, env := a.do(call{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{original}})
	require.True(t, env.Success, env.Message)
	rotated := refreshCookie(t, w)
	assert.NotEqual(t, original.Value, rotated.Value)

	_, replay := a.do(call{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{original}})
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	assert.Equal(t, auth.MsgInvalidRefreshToken, replay.Message)

	_, missing := a.do(call{method: http.MethodPost, path: "/api/auth/refresh"})
	assert.Equal(t, auth.MsgMissingRefreshToken, missing.Message)

	w, env = a.do(call{method: http.MethodPost, path: "/api/auth/logout", cookies: []*http.Cookie{rotated}})
	assert.True(t, env.Success)
	cleared := refreshCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	_, env = a.do(call{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{rotated}})
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
}

func TestChangePasswordRevokesAccessTokens(t *testing.T) {
	a := newAPI(t, 100)
	a.do(call{method: http.MethodPost, path: "/api/auth/signup", body: signupBody})
	token, cookie := a.login("ada@example.com", password)

	_, env := a.do(call{method: http.MethodPost, path: "/api/auth/change-password", body: `{"currentPassword":"Passw0rd!","newPassword":"N3w!password"}`})
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode, "requires a bearer token")

	_, env = a.do(call{method: http.MethodPost, path: "/api/auth/change-password", token: token, body: `{"currentPassword":"Passw0rd!","newPassword":"N3w!password"}`})
	require.True(t, env.Success, env.Message)
	assert.Equal(t, auth.MsgPasswordChanged, env.Message)

	_, env = a.do(call{method: http.MethodGet, path: "/api/auth/sessions", token: token})
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
	assert.Equal(t, middleware.MsgTokenRevoked, env.Message)

	_, env = a.do(call{method: http.MethodPost, path: "/api/auth/refresh", cookies: []*http.Cookie{cookie}})
	assert.Equal(t, http.StatusUnauthorized, env.StatusCode)

	fresh, _ := a.login("ada@example.com", "N3w!password")
	_, env = a.do(call{method: http.MethodGet, path: "/api/auth/sessions", token: fresh})
	require.True(t, env.Success, env.Message)
	var views []auth.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	assert.Len(t, views, 1)
}

func TestRevokeSessionsRequiresAdmin(t *testing.T) {
	a := newAPI(t, 100)
	_, signup := a.do(call{method: http.MethodPost, path: "/api/auth/signup", body: signupBody})
	var payload auth.TokenPayload
	require.NoError(t, json.Unmarshal(signup.Data, &payload))

	_, env := a.do(call{method: http.MethodPost, path: "/api/auth/revoke-sessions/" + payload.UserID, token: payload.Token})
	assert.Equal(t, http.StatusForbidden, env.StatusCode)
	assert.Equal(t, "Forbidden", env.Message)

	adminToken, _ := a.login(adminEmail, adminPassword)
	_, env = a.do(call{method: http.MethodPost, path: "/api/auth/revoke-sessions/" + payload.UserID, token: adminToken})
	require.True(t, env.Success, env.Message)
	assert.Equal(t, "All sessions revoked (1)", env.Message)

	_, env = a.do(call{method: http.MethodPost, path: "/api/auth/revoke-sessions/unknown", token: adminToken})
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}

func TestForgotPasswordWithoutFrontendConfig(t *testing.T) {
	a := newAPI(t, 100)

	_, env := a.do(call{method: http.MethodPost, path: "/api/auth/forgot-password", body: `{"email":"nobody@example.com"}`})
	assert.True(t, env.Success)
	assert.Equal(t, auth.MsgResetLinkSent, env.Message)

	w, env := a.do(call{method: http.MethodPost, path: "/api/auth/forgot-password", body: `{"email":"` + adminEmail + `"}`})
	assert.Equal(t, http.StatusInternalServerError, w.Code, "a confirmed account needs the frontend url")
	assert.Equal(t, "Something went wrong", env.Message)
}

func TestLoginIsRateLimited(t *testing.T) {
	a := newAPI(t, 2)
	body := `{"email":"nobody@example.com","password":"x"}`

	for range 2 {
		_, env := a.do(call{method: http.MethodPost, path: "/api/auth/login", body: body})
		assert.Equal(t, http.StatusUnauthorized, env.StatusCode)
		assert.Equal(t, auth.MsgInvalidCredentials, env.Message)
	}
	w, env := a.do(call{method: http.MethodPost, path: "/api/auth/login", body: body})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, middleware.MsgTooManyRequests, env.Message)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	a := newAPI(t, 2)
	body := `{"email":"nobody@example.com","password":"x"}`

	var last *httptest.ResponseRecorder
	for i := range 3 {
		last, _ = a.do(call{
			method: http.MethodPost,
			path:   "/api/auth/login",
			body:   body,
			header: http.Header{"X-Forwarded-For": {fmt.Sprintf("198.51.100.%d", i+1)}},
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code, "forwarded headers from untrusted peers do not reset the limit")
}
