package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/log"
	khttp "github.com/kochabx/passport/transport/http"
)

func TestPathMatcher(t *testing.T) {
	pm := NewPathMatcher([]string{"/health", "/api/public/**", "/api/*/docs"})

	for path, want := range map[string]bool{
		"/health":            true,
		"/health/deep":       false,
		"/api/public":        true,
		"/api/public/a/b":    true,
		"/api/publicity":     false,
		"/api/v1/docs":       true,
		"/api/v1/docs/extra": false,
		"/api/auth/login":    false,
	} {
		assert.Equal(t, want, pm.Match(path), path)
	}

	var nilMatcher *PathMatcher
	assert.False(t, nilMatcher.Match("/health"))
}

func TestRequireRoles(t *testing.T) {
	codec := newCodec(t)
	r := protectedRouter(
		Auth(AuthConfig{Verifier: codec, Logger: log.Nop()}),
		RequireRoles(directory.RoleAdmin),
	)

	assert.Equal(t, http.StatusOK, get(r, "/me", issue(t, codec, "admin", 1, directory.RoleAdmin, directory.RoleUser)).Code)

	w := get(r, "/me", issue(t, codec, "u1", 1, directory.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", message(t, w))
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := protectedRouter(RequireRoles(directory.RoleAdmin))
	w := get(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgUnauthorized, message(t, w))
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := rate.NewSlidingWindowLimiter(rdb, "rl:", time.Minute, 2)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{Limiter: limiter, Logger: log.Nop()}))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post("10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, post("10.0.0.1").Code)

	blocked := post("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, MsgTooManyRequests, message(t, blocked))
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, post("10.0.0.2").Code, "limits are per client")

	mr.Close()
	assert.Equal(t, http.StatusOK, post("10.0.0.1").Code, "an unavailable limiter fails open")
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Recovery(RecoveryConfig{Logger: log.NewWriter(&buf)}))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, khttp.MsgInternal, message(t, w))
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "boom")
	assert.NotContains(t, buf.String(), "secret-token")
}

func TestCors(t *testing.T) {
	r := gin.New()
	r.Use(Cors(DefaultCorsConfig("https://app.example.com", "*.example.org")))
	r.POST("/api/auth/refresh", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := httptest.NewRequest(http.MethodOptions, "/api/auth/refresh", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))

	wildcard := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	wildcard.Header.Set("Origin", "https://tenant.example.org")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, wildcard)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://tenant.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	foreign.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, foreign)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Logger(LoggerConfig{SkipPaths: []string{"/health"}, Logger: log.NewWriter(&buf)}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-Id", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}
