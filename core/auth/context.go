package auth

import "time"

// RefreshCookie 刷新令牌 cookie 名
const RefreshCookie = "refresh_token"

const unknown = "unknown"

// CookieJar 刷新令牌的传输通道，由 HTTP 边界实现
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, expires time.Time)
	Delete(name string)
}

// RequestContext 请求级上下文，在边界层构造一次后传入每个用例
type RequestContext struct {
	IP        string
	UserAgent string
	// UserID 已认证用户，未认证为空
	UserID  string
	Cookies CookieJar
}

// Authenticated 是否已认证
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.UserID != ""
}

func (rc *RequestContext) ip() string {
	if rc == nil || rc.IP == "" {
		return unknown
	}
	return rc.IP
}

func (rc *RequestContext) userAgent() string {
	if rc == nil || rc.UserAgent == "" {
		return unknown
	}
	return rc.UserAgent
}

func (rc *RequestContext) refreshToken() string {
	if rc == nil || rc.Cookies == nil {
		return ""
	}
	v, _ := rc.Cookies.Get(RefreshCookie)
	return v
}

func (rc *RequestContext) setRefreshToken(token string, expires time.Time) {
	if rc != nil && rc.Cookies != nil {
		rc.Cookies.Set(RefreshCookie, token, expires)
	}
}

func (rc *RequestContext) clearRefreshToken() {
	if rc != nil && rc.Cookies != nil {
		rc.Cookies.Delete(RefreshCookie)
	}
}
