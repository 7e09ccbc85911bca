package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/kochabx/passport/core/tag"
	kerrors "github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
)

// 投递方式
const (
	ProviderLog    = "log"
	ProviderResend = "resend"
)

// Config 邮件投递配置
type Config struct {
	Provider string `mapstructure:"provider" default:"log" validate:"oneof=log resend"`
	// From 发件人，需在 Resend 中完成域名验证
	From         string `mapstructure:"from" default:"Passport <no-reply@passport.local>"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
}

// Message 待投递的邮件
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender 邮件投递
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender 按配置创建 Sender
func NewSender(cfg Config, logger *log.Logger) (Sender, error) {
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderResend:
		return NewResendSender(cfg.ResendAPIKey, cfg.From)
	case ProviderLog:
		return NewLogSender(logger), nil
	default:
		return nil, kerrors.Configuration("notify: unknown provider %q", cfg.Provider)
	}
}

type sendFunc func(ctx context.Context, req *resend.SendEmailRequest) error

// ResendSender 通过 Resend API 投递
type ResendSender struct {
	from string
	send sendFunc
}

// NewResendSender 创建 Resend 投递器
func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, kerrors.Configuration("notify: resend api key is not configured")
	}
	if from == "" {
		return nil, kerrors.Configuration("notify: sender address is not configured")
	}
	client := resend.NewClient(apiKey)
	return &ResendSender{
		from: from,
		send: func(ctx context.Context, req *resend.SendEmailRequest) error {
			_, err := client.Emails.SendWithContext(ctx, req)
			return err
		},
	}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	err := s.send(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("notify: send %q: %w", msg.Subject, err)
	}
	return nil
}

// LogSender 只记录日志，开发环境使用
type LogSender struct {
	logger *log.Logger
}

// NewLogSender 创建日志投递器，logger 为 nil 时使用全局日志
func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.G
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("email delivered to log")
	return nil
}
