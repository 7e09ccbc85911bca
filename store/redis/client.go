package redis

import (
	"context"
	"runtime"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/log"
)

// Client Redis 客户端，会话存储、限流与任务队列共用
type Client struct {
	rdb    redis.UniversalClient
	logger *log.Logger
}

// New 按配置创建客户端并检查连通性
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: log.G, tracing: cfg.Tracing, metrics: cfg.Metrics}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{rdb: redis.NewUniversalClient(universalOptions(&cfg)), logger: o.logger}
	if err := c.install(o, &cfg); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	if !o.skipPing {
		if err := c.Ping(context.Background()); err != nil {
			_ = c.rdb.Close()
			return nil, err
		}
	}

	c.logger.Info().Str("mode", cfg.mode()).Strs("addrs", cfg.Addrs).Msg("redis client created")
	return c, nil
}

// Wrap 包装已有客户端
func Wrap(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb, logger: log.G}
}

func universalOptions(cfg *Config) *redis.UniversalOptions {
	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = 10 * runtime.GOMAXPROCS(0)
	}
	return &redis.UniversalOptions{
		Addrs:           cfg.Addrs,
		MasterName:      cfg.MasterName,
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		Protocol:        cfg.Protocol,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        poolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxIdleTime: cfg.MaxIdleTime,
		PoolTimeout:     cfg.PoolTimeout,
		MaxRetries:      cfg.MaxRetries,
	}
}

func (c *Client) install(o *options, cfg *Config) error {
	for _, h := range o.hooks {
		c.rdb.AddHook(h)
	}
	if o.tracing {
		if err := redisotel.InstrumentTracing(c.rdb, o.tracingOpts...); err != nil {
			return err
		}
	}
	if o.metrics {
		if err := redisotel.InstrumentMetrics(c.rdb, o.metricsOpts...); err != nil {
			return err
		}
	}
	if cfg.Debug || cfg.SlowQuery > 0 {
		c.rdb.AddHook(NewDebugHook(c.logger, cfg.SlowQuery, cfg.Debug))
	}
	return nil
}

// UniversalClient 返回底层客户端
func (c *Client) UniversalClient() redis.UniversalClient {
	return c.rdb
}

// Ping 检查连通性
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭客户端
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Stats 连接池统计
func (c *Client) Stats() *redis.PoolStats {
	return c.rdb.PoolStats()
}
