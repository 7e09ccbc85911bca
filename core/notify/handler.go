package notify

import (
	"context"
	"errors"

	"github.com/kochabx/passport/core/scheduler"
	"github.com/kochabx/passport/log"
)

// Handlers 邮件任务处理器
type Handlers struct {
	sender   Sender
	renderer *Renderer
	logger   *log.Logger
}

// NewHandlers 创建邮件任务处理器
func NewHandlers(sender Sender, renderer *Renderer, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.G
	}
	return &Handlers{sender: sender, renderer: renderer, logger: logger}
}

// Register 将四类邮件任务注册到调度器
func (h *Handlers) Register(r *scheduler.Registry) error {
	return errors.Join(
		scheduler.Register[Welcome](r, TaskWelcome, scheduler.HandlerFunc[Welcome](h.welcome)),
		scheduler.Register[PasswordReset](r, TaskPasswordReset, scheduler.HandlerFunc[PasswordReset](h.passwordReset)),
		scheduler.Register[SecurityNotice](r, TaskPasswordChanged, scheduler.HandlerFunc[SecurityNotice](h.passwordChanged)),
		scheduler.Register[SecurityNotice](r, TaskPasswordResetSucceeded, scheduler.HandlerFunc[SecurityNotice](h.passwordResetSucceeded)),
	)
}

func (h *Handlers) welcome(ctx context.Context, p Welcome) error {
	html, err := h.renderer.Welcome(p)
	if err != nil {
		return err
	}
	return h.deliver(ctx, p.Email, SubjectWelcome, html, "welcome")
}

func (h *Handlers) passwordReset(ctx context.Context, p PasswordReset) error {
	html, err := h.renderer.PasswordReset(p)
	if err != nil {
		return err
	}
	return h.deliver(ctx, p.Email, SubjectPasswordReset, html, "password reset")
}

func (h *Handlers) passwordChanged(ctx context.Context, p SecurityNotice) error {
	html, err := h.renderer.PasswordChanged(p)
	if err != nil {
		return err
	}
	return h.deliver(ctx, p.Email, SubjectPasswordChanged, html, "password changed")
}

func (h *Handlers) passwordResetSucceeded(ctx context.Context, p SecurityNotice) error {
	html, err := h.renderer.PasswordResetSucceeded(p)
	if err != nil {
		return err
	}
	return h.deliver(ctx, p.Email, SubjectPasswordResetSucceeded, html, "password reset success")
}

func (h *Handlers) deliver(ctx context.Context, to, subject, html, kind string) error {
	if err := h.sender.Send(ctx, Message{To: to, Subject: subject, HTML: html}); err != nil {
		h.logger.Error().Err(err).Str("email", to).Msgf("failed to send %s email", kind)
		return err
	}
	h.logger.Info().Str("email", to).Msgf("%s email sent", kind)
	return nil
}
