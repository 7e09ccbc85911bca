package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/auth/jwt"
	"github.com/kochabx/passport/log"
	khttp "github.com/kochabx/passport/transport/http"
)

const (
	MsgUnauthorized = "Unauthorized"
	MsgTokenRevoked = "Token revoked"
)

var ErrMissingToken = errors.New("middleware: missing token")

type claimsKey struct{}

// TokenVerifier 校验访问令牌，*jwt.Codec 实现了它
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// TokenExtractor 从请求中取出令牌
type TokenExtractor func(c *gin.Context) (string, error)

// BearerExtractor 读取 Authorization: Bearer <token>，前缀大小写不敏感
func BearerExtractor() TokenExtractor {
	return func(c *gin.Context) (string, error) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", ErrMissingToken
		}
		if token = strings.TrimSpace(token); token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

// AuthConfig 认证中间件配置
type AuthConfig struct {
	Verifier TokenVerifier // 必需
	// Versions 令牌版本来源，为空时不做撤销检查
	Versions  directory.VersionSource
	Extractor TokenExtractor
	SkipPaths []string
	SkipFunc  func(*gin.Context) bool
	Logger    *log.Logger
}

// Auth 校验访问令牌，并与用户当前令牌版本比对
//
// 版本落后说明用户已撤销全部会话或修改过密码，令牌在过期前即视为失效。
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Verifier == nil {
		panic("middleware: TokenVerifier is required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = BearerExtractor()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		token, err := cfg.Extractor(c)
		if err != nil {
			khttp.Abort(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			cfg.Logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("auth: token rejected")
			khttp.Abort(c, http.StatusUnauthorized, MsgUnauthorized)
			return
		}

		if cfg.Versions != nil {
			current, err := cfg.Versions.TokenVersion(c.Request.Context(), claims.UserID())
			switch {
			case errors.Is(err, directory.ErrUserNotFound):
				khttp.Abort(c, http.StatusUnauthorized, MsgTokenRevoked)
				return
			case err != nil:
				khttp.Error(c, err)
				return
			case current != claims.TokenVersion:
				cfg.Logger.Info().Str("user_id", claims.UserID()).Int64("token_version", claims.TokenVersion).
					Int64("current_version", current).Msg("auth: stale access token")
				khttp.Abort(c, http.StatusUnauthorized, MsgTokenRevoked)
				return
			}
		}

		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// WithClaims 将令牌载荷放入上下文
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims 取出认证中间件写入的令牌载荷
func GetClaims(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}
