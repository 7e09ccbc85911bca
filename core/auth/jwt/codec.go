package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/core/util/id"
	"github.com/kochabx/passport/core/validator"
	kerrors "github.com/kochabx/passport/errors"
)

// Codec 签发与校验访问令牌，不访问任何存储
type Codec struct {
	cfg    Config
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option Codec 选项
type Option func(*Codec)

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New 创建 Codec，密钥为空时返回 ErrEmptySecret，其余配置错误同样归为配置类错误
func New(cfg Config, opts ...Option) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := validator.Validate.Struct(&cfg); err != nil {
		return nil, kerrors.Configuration("jwt: %v", err)
	}

	c := &Codec{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(0),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}
	c.parser = jwt.NewParser(parserOpts...)
	return c, nil
}

// TTL 访问令牌有效期
func (c *Codec) TTL() time.Duration {
	return c.cfg.AccessTokenTTL
}

// Issue 签发访问令牌，返回令牌与过期时间
func (c *Codec) Issue(s Subject) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.cfg.AccessTokenTTL)

	claims := &Claims{
		Email:        s.Email,
		TokenVersion: s.TokenVersion,
		Roles:        s.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			ID:        id.Generate(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    c.cfg.Issuer,
		},
	}
	if c.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.cfg.Audience}
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}

	token, err := jwt.NewWithClaims(c.cfg.method(), claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// 与 exp 声明保持相同精度
	return token, claims.ExpiresAt.Time, nil
}

// Verify 校验签名、算法、签发者、受众与过期时间
func (c *Codec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	default:
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
