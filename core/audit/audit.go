// Package audit 发布认证事件
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/log"
	kstore "github.com/kochabx/passport/store/kafka"
)

// 事件类型
const (
	EventSignup                 = "signup"
	EventLogin                  = "login"
	EventLoginFailed            = "login_failed"
	EventRefresh                = "refresh"
	EventLogout                 = "logout"
	EventSessionsRevoked        = "sessions_revoked"
	EventPasswordChanged        = "password_changed"
	EventPasswordResetRequested = "password_reset_requested"
	EventPasswordReset          = "password_reset"
)

// Event 认证事件
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	Email      string    `json:"email,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher 事件发布，发布失败只记录日志
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Config 审计配置
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Topic   string `mapstructure:"topic" default:"passport.auth-events"`
}

// New 按配置返回发布器，未启用时返回 NopPublisher
func New(cfg Config, client *kstore.Client, logger *log.Logger) (Publisher, error) {
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled || client == nil {
		return NopPublisher{}, nil
	}
	if logger == nil {
		logger = log.G
	}
	w := client.Producer(cfg.Topic, true, func(msgs []kafka.Message, err error) {
		if err != nil {
			logger.Error().Err(err).Int("count", len(msgs)).Str("topic", cfg.Topic).Msg("failed to deliver audit events")
		}
	})
	return NewKafkaPublisher(w, logger), nil
}

// KafkaPublisher 以 JSON 写入 Kafka，消息 key 为用户 ID
type KafkaPublisher struct {
	w      kstore.Writer
	logger *log.Logger
	now    func() time.Time
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(w kstore.Writer, logger *log.Logger) *KafkaPublisher {
	if logger == nil {
		logger = log.G
	}
	return &KafkaPublisher{w: w, logger: logger, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		p.logger.Error().Err(err).Str("type", e.Type).Msg("failed to encode audit event")
		return
	}

	key := e.UserID
	if key == "" {
		key = e.Email
	}
	msg := kafka.Message{Key: []byte(key), Value: value, Time: e.OccurredAt}
	if err := p.w.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.logger.Error().Err(err).Str("type", e.Type).Msg("failed to publish audit event")
	}
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
