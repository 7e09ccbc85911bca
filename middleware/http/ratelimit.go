package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/log"
	khttp "github.com/kochabx/passport/transport/http"
)

const MsgTooManyRequests = "Too many requests"

// RateLimitConfig 限流中间件配置
type RateLimitConfig struct {
	Limiter rate.Limiter // 必需
	// KeyFunc 计数维度，默认客户端 IP
	KeyFunc   func(*gin.Context) string
	SkipPaths []string
	SkipFunc  func(*gin.Context) bool
	Logger    *log.Logger
}

// RateLimit 超出配额返回 429；限流存储不可用时放行并记录日志
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		panic("middleware: rate.Limiter is required")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
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

		d, err := cfg.Limiter.Allow(c.Request.Context(), cfg.KeyFunc(c))
		if err != nil {
			cfg.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("rate limit: limiter unavailable")
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			header.Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			khttp.Abort(c, http.StatusTooManyRequests, MsgTooManyRequests)
			return
		}

		c.Next()
	}
}
