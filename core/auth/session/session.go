// Package session 管理刷新会话：创建、轮换、注销与批量撤销
//
// 存储布局（前缀默认 auth:）：
//
//	<prefix>session:<id>          会话 JSON，过期时间为会话剩余寿命
//	<prefix>refresh:<token>       会话 ID，每次轮换后旧 key 删除
//	<prefix>user-sessions:<uid>   用户的会话 ID 集合
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidRefreshToken = errors.New("session: invalid refresh token")
	ErrSessionExpired      = errors.New("session: expired")
	ErrSessionRevoked      = errors.New("session: revoked")
	ErrSessionNotFound     = errors.New("session: not found")
)

// Session 会话记录
type Session struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	TokenVersion int64     `json:"tokenVersion"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Issued 新签发的刷新令牌
type Issued struct {
	RefreshToken string
	ExpiresAt    time.Time
	Session      *Session
}

// UserID 会话所属用户
func (i *Issued) UserID() string {
	return i.Session.UserID
}

// Store 会话依赖的键值操作，*redis.Client 实现了它
type Store interface {
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Config 会话配置
type Config struct {
	Prefix     string        `mapstructure:"prefix" default:"auth:"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl" default:"168h"`
	// TokenBytes 刷新令牌随机字节数，不少于 MinTokenBytes
	TokenBytes int `mapstructure:"token_bytes" default:"64" validate:"min=32"`
}
