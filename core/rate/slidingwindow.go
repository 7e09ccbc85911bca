package rate

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/core/util/id"
)

var (
	//go:embed slidingwindow.lua
	slidingWindowLua    string
	slidingWindowScript = redis.NewScript(slidingWindowLua)
)

// SlidingWindowLimiter 基于 Redis 有序集合的滑动窗口限流
//
// 每个请求以毫秒时间戳为分值写入 prefix+key，窗口外的记录在判定前清除。
type SlidingWindowLimiter struct {
	client redis.UniversalClient
	prefix string
	window time.Duration
	limit  int
}

// NewSlidingWindowLimiter 创建限流器，window 内最多放行 limit 次
func NewSlidingWindowLimiter(client redis.UniversalClient, prefix string, window time.Duration, limit int) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{client: client, prefix: prefix, window: window, limit: limit}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	return l.AllowN(ctx, key, time.Now(), 1)
}

func (l *SlidingWindowLimiter) AllowN(ctx context.Context, key string, now time.Time, n int) (Decision, error) {
	res, err := slidingWindowScript.Run(ctx, l.client, []string{l.prefix + key},
		l.window.Milliseconds(), l.limit, now.UnixMilli(), n, id.Hex(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, errors.New("rate: unexpected script result")
	}
	return Decision{
		Allowed:    res[0] == 1,
		Limit:      l.limit,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
