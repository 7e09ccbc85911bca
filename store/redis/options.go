package redis

import (
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/log"
)

// Option 客户端选项
type Option func(*options)

type options struct {
	hooks       []redis.Hook
	tracing     bool
	metrics     bool
	tracingOpts []redisotel.TracingOption
	metricsOpts []redisotel.MetricsOption
	logger      *log.Logger
	skipPing    bool
}

// WithHooks 添加自定义 Hook
func WithHooks(hooks ...redis.Hook) Option {
	return func(o *options) { o.hooks = append(o.hooks, hooks...) }
}

// WithTracing 启用 OpenTelemetry 追踪
func WithTracing(opts ...redisotel.TracingOption) Option {
	return func(o *options) {
		o.tracing = true
		o.tracingOpts = opts
	}
}

// WithMetrics 启用 OpenTelemetry 指标
func WithMetrics(opts ...redisotel.MetricsOption) Option {
	return func(o *options) {
		o.metrics = true
		o.metricsOpts = opts
	}
}

// WithLogger 设置日志记录器，默认 log.G
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithoutPing 创建时不检查连通性
func WithoutPing() Option {
	return func(o *options) { o.skipPing = true }
}
