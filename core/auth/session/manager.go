package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/core/util/id"
	kerrors "github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/store/redis"
)

const unknown = "unknown"

// MinTokenBytes 刷新令牌最少随机字节数
const MinTokenBytes = 32

// Manager 会话管理器
type Manager struct {
	store    Store
	versions directory.VersionSource
	cfg      Config
	now      func() time.Time
	logger   *log.Logger
}

// Option Manager 选项
type Option func(*Manager)

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger 设置日志记录器
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager 创建会话管理器
func NewManager(store Store, versions directory.VersionSource, cfg Config, opts ...Option) (*Manager, error) {
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if cfg.TokenBytes < MinTokenBytes {
		return nil, kerrors.Configuration("session: token_bytes must be at least %d", MinTokenBytes)
	}
	m := &Manager{store: store, versions: versions, cfg: cfg, now: time.Now, logger: log.G}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) sessionKey(sessionID string) string { return m.cfg.Prefix + "session:" + sessionID }
func (m *Manager) refreshKey(token string) string     { return m.cfg.Prefix + "refresh:" + token }
func (m *Manager) indexKey(userID string) string      { return m.cfg.Prefix + "user-sessions:" + userID }

// Create 为用户创建会话并签发刷新令牌
func (m *Manager) Create(ctx context.Context, user *directory.User, ip, userAgent string) (*Issued, error) {
	token, err := id.Token(m.cfg.TokenBytes)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s := &Session{
		SessionID:    id.Hex(),
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		IPAddress:    orUnknown(ip),
		UserAgent:    orUnknown(userAgent),
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.cfg.RefreshTTL),
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	ttl := s.ExpiresAt.Sub(now)
	if err := m.store.SetTTL(ctx, m.sessionKey(s.SessionID), string(data), ttl); err != nil {
		return nil, err
	}
	if err := m.store.SAdd(ctx, m.indexKey(user.ID), s.SessionID); err != nil {
		return nil, err
	}
	if _, err := m.store.Expire(ctx, m.indexKey(user.ID), m.cfg.RefreshTTL); err != nil {
		return nil, err
	}
	if err := m.store.SetTTL(ctx, m.refreshKey(token), s.SessionID, ttl); err != nil {
		return nil, err
	}

	return &Issued{RefreshToken: token, ExpiresAt: s.ExpiresAt, Session: s}, nil
}

// Rotate 以旧令牌换取新令牌，会话过期时间不变
//
// 旧令牌通过 GETDEL 取出，并发轮换同一令牌只有一方成功。
func (m *Manager) Rotate(ctx context.Context, presented string) (*Issued, error) {
	sessionID, err := m.store.GetDel(ctx, m.refreshKey(presented))
	if redis.IsNil(err) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	current, err := m.versions.TokenVersion(ctx, s.UserID)
	if errors.Is(err, directory.ErrUserNotFound) {
		return nil, ErrSessionRevoked
	}
	if err != nil {
		return nil, err
	}
	if current != s.TokenVersion {
		return nil, ErrSessionRevoked
	}

	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil, ErrSessionExpired
	}
	token, err := id.Token(m.cfg.TokenBytes)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetTTL(ctx, m.refreshKey(token), s.SessionID, ttl); err != nil {
		return nil, err
	}
	return &Issued{RefreshToken: token, ExpiresAt: s.ExpiresAt, Session: s}, nil
}

// Destroy 注销刷新令牌对应的会话，返回会话 ID 与所属用户
//
// 会话记录已过期时只删除令牌，userID 为空。
func (m *Manager) Destroy(ctx context.Context, refreshToken string) (sessionID, userID string, err error) {
	sessionID, err = m.store.Get(ctx, m.refreshKey(refreshToken))
	if redis.IsNil(err) {
		return "", "", ErrSessionNotFound
	}
	if err != nil {
		return "", "", err
	}

	s, err := m.load(ctx, sessionID)
	switch {
	case err == nil:
		userID = s.UserID
		if err := m.store.SRem(ctx, m.indexKey(userID), sessionID); err != nil {
			return "", "", err
		}
	case !errors.Is(err, ErrSessionExpired):
		return "", "", err
	}

	if _, err := m.store.Del(ctx, m.sessionKey(sessionID), m.refreshKey(refreshToken)); err != nil {
		return "", "", err
	}
	return sessionID, userID, nil
}

// RevokeAll 提升令牌版本并删除用户全部会话，返回实际删除的会话数
//
// 刷新 key 不逐个删除，它们指向的会话已不存在，轮换时会失败。
func (m *Manager) RevokeAll(ctx context.Context, userID string) (int, error) {
	if _, err := m.versions.IncrementTokenVersion(ctx, userID); err != nil {
		return 0, err
	}

	ids, err := m.store.SMembers(ctx, m.indexKey(userID))
	if err != nil {
		return 0, err
	}
	var count int
	for _, sid := range ids {
		n, err := m.store.Del(ctx, m.sessionKey(sid))
		if err != nil {
			return count, err
		}
		count += int(n)
	}
	if _, err := m.store.Del(ctx, m.indexKey(userID)); err != nil {
		return count, err
	}
	return count, nil
}

// List 返回用户仍然有效的会话，按创建时间倒序，顺带清理索引中的过期项
func (m *Manager) List(ctx context.Context, userID string) ([]Session, error) {
	ids, err := m.store.SMembers(ctx, m.indexKey(userID))
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(ids))
	var stale []string
	for _, sid := range ids {
		s, err := m.load(ctx, sid)
		if errors.Is(err, ErrSessionExpired) {
			stale = append(stale, sid)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if len(stale) > 0 {
		if err := m.store.SRem(ctx, m.indexKey(userID), stale...); err != nil {
			m.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to prune session index")
		}
	}

	slices.SortFunc(sessions, func(a, b Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sessions, nil
}

// load 读取会话，不存在时返回 ErrSessionExpired
func (m *Manager) load(ctx context.Context, sessionID string) (*Session, error) {
	data, err := m.store.Get(ctx, m.sessionKey(sessionID))
	if redis.IsNil(err) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", sessionID, err)
	}
	return &s, nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
