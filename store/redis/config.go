package redis

import (
	"time"

	"github.com/kochabx/passport/core/tag"
)

// Config Redis 配置（单机/集群/哨兵）
//
// 单机: addrs: ["localhost:6379"]
// 集群: addrs: ["node1:6379", "node2:6379"]
// 哨兵: master_name 非空，addrs 为哨兵地址
type Config struct {
	Addrs      []string `mapstructure:"addrs" default:"localhost:6379"`
	MasterName string   `mapstructure:"master_name"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	// DB 集群模式忽略
	DB       int `mapstructure:"db"`
	Protocol int `mapstructure:"protocol" default:"3"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" default:"3s"`

	// PoolSize 0 表示 10 * GOMAXPROCS
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxIdleTime  time.Duration `mapstructure:"max_idle_time" default:"5m"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout" default:"4s"`
	MaxRetries   int           `mapstructure:"max_retries"`

	// SlowQuery 大于 0 时记录慢命令
	SlowQuery time.Duration `mapstructure:"slow_query"`
	Debug     bool          `mapstructure:"debug"`
	// Tracing、Metrics 通过 redisotel 接入全局 OpenTelemetry provider
	Tracing bool `mapstructure:"tracing"`
	Metrics bool `mapstructure:"metrics"`
}

// Validate 检查配置
func (c *Config) Validate() error {
	if len(c.Addrs) == 0 {
		return ErrEmptyAddrs
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) mode() string {
	switch {
	case c.MasterName != "":
		return "sentinel"
	case len(c.Addrs) > 1:
		return "cluster"
	default:
		return "single"
	}
}

func (c *Config) applyDefaults() error {
	return tag.ApplyDefaults(c)
}
