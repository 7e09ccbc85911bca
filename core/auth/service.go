// Package auth 编排认证用例：注册、登录、刷新、注销、会话撤销与密码管理
//
// 预期内的失败以 Result 返回，携带状态码与面向用户的消息；
// 非预期错误以 error 返回，由边界层统一转换为 500。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kochabx/passport/core/audit"
	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/auth/jwt"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/notify"
	"github.com/kochabx/passport/core/tag"
	kerrors "github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
)

const defaultFirstName = "User"

// Sessions 会话管理，*session.Manager 实现了它
type Sessions interface {
	Create(ctx context.Context, user *directory.User, ip, userAgent string) (*session.Issued, error)
	Rotate(ctx context.Context, refreshToken string) (*session.Issued, error)
	Destroy(ctx context.Context, refreshToken string) (sessionID, userID string, err error)
	RevokeAll(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, userID string) ([]session.Session, error)
}

// Tokens 访问令牌签发，*jwt.Codec 实现了它
type Tokens interface {
	Issue(s jwt.Subject) (string, time.Time, error)
}

// FrontendConfig 前端地址，用于拼接重置链接
type FrontendConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	ResetPasswordPath string `mapstructure:"reset_password_path" default:"reset-password"`
}

// Config 用例配置
type Config struct {
	Frontend FrontendConfig `mapstructure:"frontend"`
	// ResetLinkTTL 仅用于邮件中的有效期提示
	ResetLinkTTL time.Duration `mapstructure:"reset_link_ttl" default:"24h"`
}

// Service 认证编排
type Service struct {
	cfg       Config
	directory directory.Directory
	sessions  Sessions
	tokens    Tokens
	notifier  notify.Notifier
	audit     audit.Publisher
	logger    *log.Logger
}

// Option Service 选项
type Option func(*Service)

// WithAudit 设置事件发布器
func WithAudit(p audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService 创建认证编排
func NewService(cfg Config, dir directory.Directory, sessions Sessions, tokens Tokens, notifier notify.Notifier, opts ...Option) (*Service, error) {
	if dir == nil || sessions == nil || tokens == nil || notifier == nil {
		return nil, kerrors.Configuration("auth: directory, sessions, tokens and notifier are required")
	}
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:       cfg,
		directory: dir,
		sessions:  sessions,
		tokens:    tokens,
		notifier:  notifier,
		audit:     audit.NopPublisher{},
		logger:    log.G,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignupInput 注册参数
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Signup 注册并直接登录
func (s *Service) Signup(ctx context.Context, rc *RequestContext, in SignupInput) (*Result[TokenPayload], error) {
	_, err := s.directory.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return Fail[TokenPayload](http.StatusConflict, MsgEmailExists), nil
	case !errors.Is(err, directory.ErrUserNotFound):
		return nil, err
	}

	user := &directory.User{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	}
	if err := s.directory.Create(ctx, user, in.Password); err != nil {
		if f, ok := directory.AsFailure(err); ok {
			return Fail[TokenPayload](http.StatusBadRequest, f.Error()), nil
		}
		if errors.Is(err, directory.ErrEmailTaken) {
			return Fail[TokenPayload](http.StatusConflict, MsgEmailExists), nil
		}
		return nil, err
	}
	if err := s.directory.AddRole(ctx, user.ID, directory.RoleUser); err != nil {
		return nil, err
	}

	s.notify(notify.TaskWelcome, user.ID, func() error {
		return s.notifier.SendWelcome(ctx, user.Email, orDefault(user.FirstName, defaultFirstName), user.LastName)
	})

	payload, issued, err := s.startSession(ctx, rc, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("user signed up")
	s.publish(ctx, rc, audit.EventSignup, user, issued.Session.SessionID)
	return OK(payload, MsgSignupSuccessful), nil
}

// LoginInput 登录参数
type LoginInput struct {
	Email    string
	Password string
}

// Login 校验密码并建立会话，账号不存在与密码错误返回同一结果
func (s *Service) Login(ctx context.Context, rc *RequestContext, in LoginInput) (*Result[TokenPayload], error) {
	user, err := s.directory.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, directory.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || !s.directory.CheckPassword(ctx, user, in.Password) {
		s.logger.Warn().Str("email", directory.NormalizeEmail(in.Email)).Str("ip", rc.ip()).Msg("failed login attempt")
		s.audit.Publish(ctx, audit.Event{
			Type:      audit.EventLoginFailed,
			Email:     directory.NormalizeEmail(in.Email),
			IP:        rc.ip(),
			UserAgent: rc.userAgent(),
		})
		return Fail[TokenPayload](http.StatusUnauthorized, MsgInvalidCredentials), nil
	}

	payload, issued, err := s.startSession(ctx, rc, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Str("session_id", issued.Session.SessionID).Msg("user logged in")
	s.publish(ctx, rc, audit.EventLogin, user, issued.Session.SessionID)
	return OK(payload, MsgLoginSuccessful), nil
}

// RefreshToken 轮换刷新令牌并签发新的访问令牌
func (s *Service) RefreshToken(ctx context.Context, rc *RequestContext) (*Result[TokenPayload], error) {
	presented := rc.refreshToken()
	if presented == "" {
		return Fail[TokenPayload](http.StatusUnauthorized, MsgMissingRefreshToken), nil
	}

	issued, err := s.sessions.Rotate(ctx, presented)
	if err != nil {
		if isSessionRejection(err) {
			return Fail[TokenPayload](http.StatusUnauthorized, MsgInvalidRefreshToken), nil
		}
		return nil, err
	}

	user, err := s.directory.FindByID(ctx, issued.UserID())
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[TokenPayload](http.StatusUnauthorized, MsgInvalidRefreshToken), nil
		}
		return nil, err
	}

	rc.setRefreshToken(issued.RefreshToken, issued.ExpiresAt)
	payload, err := s.accessToken(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, rc, audit.EventRefresh, user, issued.Session.SessionID)
	return OK(payload, MsgTokenRefreshed), nil
}

// Logout 注销当前会话，未携带刷新令牌时同样视为成功
func (s *Service) Logout(ctx context.Context, rc *RequestContext) (*Result[Empty], error) {
	presented := rc.refreshToken()
	if presented == "" {
		rc.clearRefreshToken()
		return OK[Empty](nil, MsgLoggedOut), nil
	}

	sessionID, userID, err := s.sessions.Destroy(ctx, presented)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return Fail[Empty](http.StatusNotFound, MsgSessionNotFound), nil
		}
		return nil, err
	}

	rc.clearRefreshToken()
	if userID == "" {
		userID = rc.UserID
	}
	s.logger.Info().Str("session_id", sessionID).Str("user_id", userID).Msg("session logged out")
	s.audit.Publish(ctx, audit.Event{
		Type:      audit.EventLogout,
		UserID:    userID,
		IP:        rc.ip(),
		UserAgent: rc.userAgent(),
		SessionID: sessionID,
	})
	return OK[Empty](nil, MsgLoggedOut), nil
}

// RevokeUserSessions 撤销用户的全部会话与已签发的访问令牌
func (s *Service) RevokeUserSessions(ctx context.Context, rc *RequestContext, userID string) (*Result[Empty], error) {
	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[Empty](http.StatusNotFound, MsgUserNotFound), nil
		}
		return nil, err
	}

	n, err := s.sessions.RevokeAll(ctx, user.ID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[Empty](http.StatusNotFound, MsgUserNotFound), nil
		}
		return nil, err
	}
	s.logger.Warn().Str("user_id", user.ID).Str("by", rc.UserID).Int("count", n).Msg("all sessions revoked")
	s.publish(ctx, rc, audit.EventSessionsRevoked, user, "")
	return OK[Empty](nil, fmt.Sprintf(msgSessionsRevokedFormat, n)), nil
}

// ListSessions 当前用户的活跃会话
func (s *Service) ListSessions(ctx context.Context, rc *RequestContext) (*Result[[]SessionView], error) {
	if !rc.Authenticated() {
		return Fail[[]SessionView](http.StatusUnauthorized, MsgNotAuthenticated), nil
	}
	list, err := s.sessions.List(ctx, rc.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(list))
	for _, item := range list {
		views = append(views, SessionView{
			SessionID: item.SessionID,
			IPAddress: item.IPAddress,
			UserAgent: item.UserAgent,
			CreatedAt: item.CreatedAt,
			ExpiresAt: item.ExpiresAt,
		})
	}
	return OK(&views, MsgSessionsRetrieved), nil
}

// ChangePasswordInput 修改密码参数
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangePassword 修改密码并撤销全部会话
func (s *Service) ChangePassword(ctx context.Context, rc *RequestContext, in ChangePasswordInput) (*Result[Empty], error) {
	if !rc.Authenticated() {
		return Fail[Empty](http.StatusUnauthorized, MsgNotAuthenticated), nil
	}
	user, err := s.directory.FindByID(ctx, rc.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[Empty](http.StatusNotFound, MsgUserNotFound), nil
		}
		return nil, err
	}

	if err := s.directory.ChangePassword(ctx, user.ID, in.CurrentPassword, in.NewPassword); err != nil {
		if f, ok := directory.AsFailure(err); ok {
			return Fail[Empty](http.StatusBadRequest, f.Error()), nil
		}
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[Empty](http.StatusNotFound, MsgUserNotFound), nil
		}
		return nil, err
	}
	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[Empty](http.StatusNotFound, MsgUserNotFound), nil
		}
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("password changed")

	s.notify(notify.TaskPasswordChanged, user.ID, func() error {
		return s.notifier.SendPasswordChanged(ctx, user.Email, orDefault(user.FirstName, defaultFirstName), rc.ip(), rc.userAgent())
	})
	s.publish(ctx, rc, audit.EventPasswordChanged, user, "")
	return OK[Empty](nil, MsgPasswordChanged), nil
}

// ForgotPassword 发送重置链接，无论邮箱是否存在都返回同一结果
func (s *Service) ForgotPassword(ctx context.Context, rc *RequestContext, email string) (*Result[Empty], error) {
	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, directory.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || !s.directory.IsEmailConfirmed(ctx, user) {
		return OK[Empty](nil, MsgResetLinkSent), nil
	}

	base := strings.TrimSpace(s.cfg.Frontend.BaseURL)
	path := strings.TrimSpace(s.cfg.Frontend.ResetPasswordPath)
	if base == "" || path == "" {
		return nil, kerrors.Configuration("frontend base url or reset password path is not configured")
	}

	token, err := s.directory.GeneratePasswordResetToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	link := resetLink(base, path, token, user.Email)

	s.notify(notify.TaskPasswordReset, user.ID, func() error {
		return s.notifier.SendPasswordResetLink(ctx, user.Email, orDefault(user.FirstName, defaultFirstName), link, s.cfg.ResetLinkTTL)
	})
	s.publish(ctx, rc, audit.EventPasswordResetRequested, user, "")
	return OK[Empty](nil, MsgResetLinkSent), nil
}

// ResetPasswordInput 重置密码参数
type ResetPasswordInput struct {
	Email       string
	Token       string
	NewPassword string
}

// ResetPassword 以重置令牌设置新密码并撤销全部会话
func (s *Service) ResetPassword(ctx context.Context, rc *RequestContext, in ResetPasswordInput) (*Result[Empty], error) {
	user, err := s.directory.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Fail[Empty](http.StatusBadRequest, MsgInvalidRequest), nil
		}
		return nil, err
	}

	if err := s.directory.ResetPassword(ctx, user.ID, in.Token, in.NewPassword); err != nil {
		if f, ok := directory.AsFailure(err); ok {
			return Fail[Empty](http.StatusBadRequest, f.Error()), nil
		}
		return nil, err
	}
	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("user_id", user.ID).Str("ip", rc.ip()).Msg("password reset")

	s.notify(notify.TaskPasswordResetSucceeded, user.ID, func() error {
		return s.notifier.SendPasswordResetSucceeded(ctx, user.Email, orDefault(user.FirstName, defaultFirstName), rc.ip(), rc.userAgent())
	})
	s.publish(ctx, rc, audit.EventPasswordReset, user, "")
	return OK[Empty](nil, MsgPasswordResetDone), nil
}

// startSession 建立会话、写入刷新令牌并签发访问令牌
func (s *Service) startSession(ctx context.Context, rc *RequestContext, user *directory.User) (*TokenPayload, *session.Issued, error) {
	issued, err := s.sessions.Create(ctx, user, rc.ip(), rc.userAgent())
	if err != nil {
		return nil, nil, err
	}
	rc.setRefreshToken(issued.RefreshToken, issued.ExpiresAt)

	payload, err := s.accessToken(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return payload, issued, nil
}

func (s *Service) accessToken(ctx context.Context, user *directory.User) (*TokenPayload, error) {
	roles, err := s.directory.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.tokens.Issue(jwt.Subject{
		ID:           user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		Roles:        roles,
	})
	if err != nil {
		return nil, err
	}
	return &TokenPayload{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Email:     user.Email,
		Roles:     roles,
	}, nil
}

// notify 邮件投递失败不影响用例结果
func (s *Service) notify(kind, userID string, send func() error) {
	if err := send(); err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Str("user_id", userID).Msg("failed to enqueue notification")
	}
}

func (s *Service) publish(ctx context.Context, rc *RequestContext, typ string, user *directory.User, sessionID string) {
	s.audit.Publish(ctx, audit.Event{
		Type:      typ,
		UserID:    user.ID,
		Email:     user.Email,
		IP:        rc.ip(),
		UserAgent: rc.userAgent(),
		SessionID: sessionID,
	})
}

func isSessionRejection(err error) bool {
	return errors.Is(err, session.ErrInvalidRefreshToken) ||
		errors.Is(err, session.ErrSessionExpired) ||
		errors.Is(err, session.ErrSessionRevoked)
}

func resetLink(base, path, token, email string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/") +
		"?token=" + url.QueryEscape(token) + "&email=" + url.QueryEscape(email)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
