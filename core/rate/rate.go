package rate

import (
	"context"
	"time"
)

// Decision 限流判定结果
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter 被拒绝时距离窗口内最早请求过期的时间
	RetryAfter time.Duration
}

// Limiter 按 key 限流
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	AllowN(ctx context.Context, key string, now time.Time, n int) (Decision, error)
}
