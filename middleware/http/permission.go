package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
	khttp "github.com/kochabx/passport/transport/http"
)

var (
	ErrUnauthorized = errors.Unauthorized(MsgUnauthorized)
	ErrForbidden    = errors.Forbidden("Forbidden")
)

// PermissionChecker 权限检查器接口
type PermissionChecker interface {
	Check(ctx context.Context, c *gin.Context) error
}

// PermissionCheckerFunc 权限检查器函数适配器
type PermissionCheckerFunc func(ctx context.Context, c *gin.Context) error

func (f PermissionCheckerFunc) Check(ctx context.Context, c *gin.Context) error {
	return f(ctx, c)
}

// PermissionConfig 权限中间件配置
type PermissionConfig struct {
	Checker   PermissionChecker       // 必需
	SkipPaths []string                // 跳过检查的路径
	SkipFunc  func(*gin.Context) bool // 动态跳过判断函数
	Logger    *log.Logger
}

// Permission 创建权限检查中间件，需位于 Auth 之后
func Permission(cfg PermissionConfig) gin.HandlerFunc {
	if cfg.Checker == nil {
		panic("middleware: PermissionChecker is required")
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

		if err := cfg.Checker.Check(c.Request.Context(), c); err != nil {
			cfg.Logger.Warn().Err(err).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("permission: check failed")
			khttp.Error(c, err)
			return
		}

		c.Next()
	}
}

// RequireRoles 持有任一角色即放行，未认证返回 401，角色不符返回 403
func RequireRoles(roles ...string) gin.HandlerFunc {
	return Permission(PermissionConfig{Checker: RoleChecker(roles...)})
}

// RoleChecker 基于令牌角色的检查器
func RoleChecker(allowed ...string) PermissionChecker {
	return PermissionCheckerFunc(func(ctx context.Context, _ *gin.Context) error {
		claims, ok := GetClaims(ctx)
		if !ok {
			return ErrUnauthorized
		}
		if !hasIntersection(allowed, claims.Roles) {
			return ErrForbidden
		}
		return nil
	})
}

// hasIntersection 检查两个切片是否有交集
func hasIntersection[T comparable](a, b []T) bool {
	for _, item := range b {
		if slices.Contains(a, item) {
			return true
		}
	}
	return false
}
