// Package notify 发送账户相关的邮件通知
//
// 业务侧只通过 Notifier 入队，真正的渲染与投递在调度器的任务处理器中完成。
package notify

import (
	"context"
	"time"

	"github.com/kochabx/passport/core/scheduler"
)

// 任务类型
const (
	TaskWelcome                = "email:welcome"
	TaskPasswordChanged        = "email:password_changed"
	TaskPasswordReset          = "email:password_reset"
	TaskPasswordResetSucceeded = "email:password_reset_succeeded"
)

// 邮件主题
const (
	SubjectWelcome                = "Welcome to Our Platform!"
	SubjectPasswordReset          = "Password Reset Request"
	SubjectPasswordChanged        = "Your Password Has Been Changed"
	SubjectPasswordResetSucceeded = "Your Password Has Been Reset"
)

// Notifier 账户通知
type Notifier interface {
	SendWelcome(ctx context.Context, email, firstName, lastName string) error
	SendPasswordChanged(ctx context.Context, email, firstName, ip, userAgent string) error
	SendPasswordResetLink(ctx context.Context, email, firstName, link string, expiresIn time.Duration) error
	SendPasswordResetSucceeded(ctx context.Context, email, firstName, ip, userAgent string) error
}

// Welcome 欢迎邮件载荷
type Welcome struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// PasswordReset 重置链接邮件载荷
type PasswordReset struct {
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	Link            string `json:"link"`
	ExpirationHours int    `json:"expirationHours"`
}

// SecurityNotice 密码变更类邮件载荷
type SecurityNotice struct {
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	OccurredAt time.Time `json:"occurredAt"`
}

// QueueNotifier 将通知投递到任务队列
type QueueNotifier struct {
	queue scheduler.Enqueuer
	now   func() time.Time
}

// NewQueueNotifier 创建基于任务队列的 Notifier
func NewQueueNotifier(queue scheduler.Enqueuer) *QueueNotifier {
	return &QueueNotifier{queue: queue, now: time.Now}
}

func (n *QueueNotifier) SendWelcome(ctx context.Context, email, firstName, lastName string) error {
	_, err := scheduler.Enqueue(ctx, n.queue, TaskWelcome, Welcome{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	})
	return err
}

func (n *QueueNotifier) SendPasswordChanged(ctx context.Context, email, firstName, ip, userAgent string) error {
	_, err := scheduler.Enqueue(ctx, n.queue, TaskPasswordChanged, n.notice(email, firstName, ip, userAgent))
	return err
}

func (n *QueueNotifier) SendPasswordResetLink(ctx context.Context, email, firstName, link string, expiresIn time.Duration) error {
	_, err := scheduler.Enqueue(ctx, n.queue, TaskPasswordReset, PasswordReset{
		Email:           email,
		FirstName:       firstName,
		Link:            link,
		ExpirationHours: int(expiresIn / time.Hour),
	})
	return err
}

func (n *QueueNotifier) SendPasswordResetSucceeded(ctx context.Context, email, firstName, ip, userAgent string) error {
	_, err := scheduler.Enqueue(ctx, n.queue, TaskPasswordResetSucceeded, n.notice(email, firstName, ip, userAgent))
	return err
}

func (n *QueueNotifier) notice(email, firstName, ip, userAgent string) SecurityNotice {
	return SecurityNotice{
		Email:      email,
		FirstName:  firstName,
		IPAddress:  ip,
		UserAgent:  userAgent,
		OccurredAt: n.now().UTC(),
	}
}

var _ Notifier = (*QueueNotifier)(nil)
