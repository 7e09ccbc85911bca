package scheduler

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryStrategy 重试策略接口
type RetryStrategy interface {
	// NextRetry 计算第 retryCount 次重试前的等待时间，从 0 开始
	NextRetry(retryCount int) time.Duration
}

// ExponentialBackoff 指数退避重试策略
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter 为 true 时附加 ±25% 随机抖动
	Jitter bool
}

// NewExponentialBackoff 创建指数退避策略
func NewExponentialBackoff(baseDelay, maxDelay time.Duration, multiplier float64, jitter bool) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		Multiplier: multiplier,
		Jitter:     jitter,
	}
}

// NextRetry 计算下次重试延迟
// 公式: delay = min(baseDelay * multiplier^retryCount, maxDelay)
func (e *ExponentialBackoff) NextRetry(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	delay := float64(e.BaseDelay) * math.Pow(e.Multiplier, float64(retryCount))
	if delay > float64(e.MaxDelay) {
		delay = float64(e.MaxDelay)
	}
	if e.Jitter && delay > 0 {
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// FixedDelay 固定延迟重试策略
type FixedDelay struct {
	Delay time.Duration
}

// NextRetry 返回固定延迟
func (f *FixedDelay) NextRetry(int) time.Duration {
	return f.Delay
}
