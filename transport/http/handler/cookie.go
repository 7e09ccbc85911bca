package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	middleware "github.com/kochabx/passport/middleware/http"
)

// cookieJar 刷新令牌 cookie：HttpOnly、SameSite=Strict、Path=/
type cookieJar struct {
	c      *gin.Context
	secure bool
}

func (j cookieJar) Get(name string) (string, bool) {
	v, err := j.c.Cookie(name)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (j cookieJar) Set(name, value string, expires time.Time) {
	http.SetCookie(j.c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (j cookieJar) Delete(name string) {
	http.SetCookie(j.c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// requestContext 每个请求构造一次，认证中间件写入的用户 ID 随之传入用例
func (h *AuthHandler) requestContext(c *gin.Context) *auth.RequestContext {
	rc := &auth.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Cookies:   cookieJar{c: c, secure: h.secureCookies},
	}
	if claims, ok := middleware.GetClaims(c.Request.Context()); ok {
		rc.UserID = claims.UserID()
	}
	return rc
}
