package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task 队列中的任务
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Retry     int             `json:"retry"`
	MaxRetry  int             `json:"maxRetry"`
	CreatedAt time.Time       `json:"createdAt"`
	// LastError 最近一次失败原因
	LastError string `json:"lastError,omitempty"`

	delay time.Duration
}

// Handler 任务处理器泛型接口
type Handler[T any] interface {
	Handle(ctx context.Context, payload T) error
}

// HandlerFunc 泛型函数类型的 Handler
type HandlerFunc[T any] func(ctx context.Context, payload T) error

// Handle 实现 Handler 接口
func (f HandlerFunc[T]) Handle(ctx context.Context, payload T) error {
	return f(ctx, payload)
}

// TaskOption 任务选项
type TaskOption func(*Task)

// WithID 设置任务ID
func WithID(id string) TaskOption {
	return func(t *Task) {
		t.ID = id
	}
}

// WithMaxRetry 设置最大重试次数
func WithMaxRetry(maxRetry int) TaskOption {
	return func(t *Task) {
		t.MaxRetry = maxRetry
	}
}

// WithDelay 延迟执行
func WithDelay(delay time.Duration) TaskOption {
	return func(t *Task) {
		t.delay = delay
	}
}

// NewTask 创建泛型任务，MaxRetry 为 -1 时由调度器配置决定
func NewTask[T any](taskType string, payload T, opts ...TaskOption) (*Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("scheduler: marshal %s payload: %w", taskType, err)
	}

	task := &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   data,
		MaxRetry:  -1,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(task)
	}
	return task, nil
}

// Validate 验证任务
func (t *Task) Validate() error {
	if t.Type == "" {
		return ErrInvalidTaskType
	}
	if t.MaxRetry < 0 {
		return ErrInvalidMaxRetry
	}
	return nil
}

// Enqueuer 任务投递方，*Scheduler 实现了它
type Enqueuer interface {
	Enqueue(ctx context.Context, task *Task) error
}

// Enqueue 构造并投递任务
func Enqueue[T any](ctx context.Context, e Enqueuer, taskType string, payload T, opts ...TaskOption) (*Task, error) {
	task, err := NewTask(taskType, payload, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}
