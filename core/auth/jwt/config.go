package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config 访问令牌配置
type Config struct {
	// Secret HMAC 密钥，通常来自环境变量 JWT_SECRET
	Secret         string        `mapstructure:"secret"`
	SigningMethod  string        `mapstructure:"signing_method" default:"HS256" validate:"oneof=HS256 HS384 HS512"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl" default:"15m" validate:"gt=0"`
	Issuer         string        `mapstructure:"issuer" default:"passport"`
	Audience       string        `mapstructure:"audience" default:"passport-clients"`
}

func (c *Config) method() jwt.SigningMethod {
	switch c.SigningMethod {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}
