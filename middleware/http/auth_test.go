package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/auth/jwt"
	"github.com/kochabx/passport/log"
	khttp "github.com/kochabx/passport/transport/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type versions map[string]int64

func (v versions) TokenVersion(_ context.Context, userID string) (int64, error) {
	if userID == "broken" {
		return 0, errors.New("db down")
	}
	n, ok := v[userID]
	if !ok {
		return 0, directory.ErrUserNotFound
	}
	return n, nil
}

func (v versions) IncrementTokenVersion(_ context.Context, userID string) (int64, error) {
	v[userID]++
	return v[userID], nil
}

func newCodec(t *testing.T) *jwt.Codec {
	t.Helper()
	c, err := jwt.New(jwt.Config{Secret: "test-secret"})
	require.NoError(t, err)
	return c
}

func issue(t *testing.T, c *jwt.Codec, userID string, version int64, roles ...string) string {
	t.Helper()
	token, _, err := c.Issue(jwt.Subject{ID: userID, Email: userID + "@x.com", TokenVersion: version, Roles: roles})
	require.NoError(t, err)
	return token
}

func protectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/me", func(c *gin.Context) {
		claims, ok := GetClaims(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		khttp.JSON(c, http.StatusOK, "", gin.H{"userId": claims.UserID(), "roles": claims.Roles})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp khttp.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Message
}

func TestBearerExtractor(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   bool
	}{
		{name: "valid bearer token", header: "Bearer mytoken123", wantToken: "mytoken123"},
		{name: "lowercase scheme", header: "bearer mytoken123", wantToken: "mytoken123"},
		{name: "missing header", header: "", wantErr: true},
		{name: "invalid scheme", header: "Basic mytoken123", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
	}

	extractor := BearerExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			token, err := extractor(c)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestAuth(t *testing.T) {
	codec := newCodec(t)
	v := versions{"u1": 1, "broken": 1}
	r := protectedRouter(Auth(AuthConfig{Verifier: codec, Versions: v, SkipPaths: []string{"/health"}, Logger: log.Nop()}))

	t.Run("valid token", func(t *testing.T) {
		w := get(r, "/me", issue(t, codec, "u1", 1, directory.RoleUser))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userId":"u1"`)
	})

	t.Run("missing token", func(t *testing.T) {
		w := get(r, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, MsgUnauthorized, message(t, w))
	})

	t.Run("tampered token", func(t *testing.T) {
		w := get(r, "/me", issue(t, codec, "u1", 1)+"x")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("stale version", func(t *testing.T) {
		token := issue(t, codec, "u1", 1)
		v["u1"] = 2
		defer func() { v["u1"] = 1 }()

		w := get(r, "/me", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, MsgTokenRevoked, message(t, w))
	})

	t.Run("deleted user", func(t *testing.T) {
		w := get(r, "/me", issue(t, codec, "ghost", 1))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, MsgTokenRevoked, message(t, w))
	})

	t.Run("version lookup failure", func(t *testing.T) {
		w := get(r, "/me", issue(t, codec, "broken", 1))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, khttp.MsgInternal, message(t, w))
	})

	t.Run("skipped path", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	})
}

func TestAuthWithoutVersionSource(t *testing.T) {
	codec := newCodec(t)
	r := protectedRouter(Auth(AuthConfig{Verifier: codec, Logger: log.Nop()}))
	assert.Equal(t, http.StatusOK, get(r, "/me", issue(t, codec, "anyone", 42)).Code)
}

func TestAuthRequiresVerifier(t *testing.T) {
	assert.Panics(t, func() { Auth(AuthConfig{}) })
}
