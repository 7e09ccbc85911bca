package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// NewEngine 创建 gin 引擎并设置可信代理
//
// 未配置 TrustedProxies 时不信任任何转发头，ClientIP 取连接对端地址，
// 按 IP 限流因此无法通过伪造 X-Forwarded-For 绕过。
func NewEngine(cfg Config) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("http: trusted proxies: %w", err)
	}
	return r, nil
}
