package http

import (
	"context"
	"time"

	"github.com/kochabx/passport/core/tag"
)

// Config HTTP 服务配置
type Config struct {
	Addr              string        `mapstructure:"addr" default:":8080"`
	Mode              string        `mapstructure:"mode" default:"release" validate:"oneof=debug release test"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" default:"10s"`
	// SecureCookies 刷新令牌 cookie 是否带 Secure，本地 http 调试时可关闭
	SecureCookies bool `mapstructure:"secure_cookies" default:"true"`
	// TrustedProxies 可信反向代理的 IP 或 CIDR，为空时忽略 X-Forwarded-For
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	Swag           SwagOption    `mapstructure:"swagger"`
	Metrics        MetricsOption `mapstructure:"metrics"`
	Health         HealthOption  `mapstructure:"health"`
	Cors           CorsOption    `mapstructure:"cors"`
	RateLimit      RateOption    `mapstructure:"rate_limit"`
}

type Options struct {
	Swag    SwagOption
	Metrics MetricsOption
	Health  HealthOption
}

type SwagOption struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" default:"/swagger/*any"`
}

func (s *SwagOption) init() error {
	return tag.ApplyDefaults(s)
}

type MetricsOption struct {
	Enabled                   bool   `mapstructure:"enabled"`
	Path                      string `mapstructure:"path" default:"/metrics"`
	EnabledGoCollector        bool   `mapstructure:"enabled_go_collector"`
	EnabledBuildInfoCollector bool   `mapstructure:"enabled_build_info_collector"`
}

func (m *MetricsOption) init() error {
	return tag.ApplyDefaults(m)
}

// HealthCheck 依赖探活，返回 nil 表示健康
type HealthCheck func(ctx context.Context) error

type HealthOption struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path" default:"/health"`
	Timeout time.Duration `mapstructure:"timeout" default:"2s"`
	checks  map[string]HealthCheck
}

func (h *HealthOption) init() error {
	return tag.ApplyDefaults(h)
}

// CorsOption 跨域配置，刷新令牌依赖 cookie，因此总是允许携带凭证
type CorsOption struct {
	AllowOrigins []string      `mapstructure:"allow_origins" default:"http://localhost:3000"`
	MaxAge       time.Duration `mapstructure:"max_age" default:"12h"`
}

// RateOption 认证接口限流，按客户端 IP 计数
type RateOption struct {
	Limit  int           `mapstructure:"limit" default:"100"`
	Window time.Duration `mapstructure:"window" default:"60s"`
}
