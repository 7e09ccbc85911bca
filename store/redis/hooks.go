package redis

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/log"
)

// DebugHook 记录命令耗时与失败，超过阈值的命令按慢查询告警
//
// 参数不会写入日志，会话 key 中包含刷新令牌。
type DebugHook struct {
	logger *log.Logger
	slow   time.Duration
	debug  bool
}

// NewDebugHook 创建 Hook，slow 为 0 时不检测慢查询
func NewDebugHook(logger *log.Logger, slow time.Duration, debug bool) *DebugHook {
	return &DebugHook{logger: logger, slow: slow, debug: debug}
}

func (h *DebugHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Error().Str("addr", addr).Err(err).Msg("redis dial failed")
		}
		return conn, err
	}
}

func (h *DebugHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.FullName(), time.Since(start), err)
		return err
	}
}

func (h *DebugHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", time.Since(start), err)
		return err
	}
}

func (h *DebugHook) observe(name string, d time.Duration, err error) {
	switch {
	case err != nil && !IsNil(err):
		h.logger.Warn().Str("cmd", name).Dur("duration", d).Err(err).Msg("redis command failed")
	case h.slow > 0 && d > h.slow:
		h.logger.Warn().Str("cmd", name).Dur("duration", d).Dur("threshold", h.slow).Msg("slow redis command")
	case h.debug:
		h.logger.Debug().Str("cmd", name).Dur("duration", d).Msg("redis command")
	}
}
