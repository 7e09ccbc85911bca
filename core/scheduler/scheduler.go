// Package scheduler 基于 Redis 的持久化任务队列
//
// 任务以 JSON 存放在就绪队列与延迟队列中。Worker 通过 BRPOP 拉取任务并交给
// ants 协程池执行，失败任务按重试策略进入延迟队列，超过重试上限后进入死信队列。
// 延迟任务由 cron 定时迁移回就绪队列。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/log"
)

// Config 调度器配置
type Config struct {
	Namespace   string        `mapstructure:"namespace" default:"passport:tasks"`
	Concurrency int           `mapstructure:"concurrency" default:"5"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" default:"1s"`
	TaskTimeout time.Duration `mapstructure:"task_timeout" default:"30s"`
	// MaxRetry 任务未指定时使用的重试上限
	MaxRetry    int           `mapstructure:"max_retry" default:"3"`
	PromoteSpec string        `mapstructure:"promote_spec" default:"@every 1s"`
	DLQSize     int           `mapstructure:"dlq_size" default:"1000"`
	Backoff     BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig 指数退避参数
type BackoffConfig struct {
	Base       time.Duration `mapstructure:"base" default:"1s"`
	Max        time.Duration `mapstructure:"max" default:"5m"`
	Multiplier float64       `mapstructure:"multiplier" default:"2"`
	Jitter     bool          `mapstructure:"jitter" default:"true"`
}

// Stats 队列统计
type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

// Scheduler 任务调度器
type Scheduler struct {
	cfg      Config
	registry *Registry
	queue    *Queue
	dlq      *DeadLetterQueue
	retry    RetryStrategy
	pool     *ants.Pool
	promoter *cron.Cron
	metrics  *Metrics
	logger   *log.Logger
	now      func() time.Time

	reg prometheus.Registerer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	wg      sync.WaitGroup
}

// Option 调度器选项
type Option func(*Scheduler)

// WithLogger 设置日志记录器
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithRetryStrategy 替换默认的指数退避
func WithRetryStrategy(r RetryStrategy) Option {
	return func(s *Scheduler) { s.retry = r }
}

// WithRegisterer 指定指标注册器，默认 prometheus.DefaultRegisterer
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Scheduler) { s.reg = reg }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New 创建调度器
func New(client redis.UniversalClient, cfg Config, opts ...Option) (*Scheduler, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrInvalidConfig)
	}
	if err := tag.ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if cfg.Concurrency <= 0 || cfg.PollTimeout <= 0 || cfg.TaskTimeout <= 0 {
		return nil, fmt.Errorf("%w: concurrency and timeouts must be positive", ErrInvalidConfig)
	}

	s := &Scheduler{
		cfg:      cfg,
		registry: NewRegistry(),
		queue:    NewQueue(client, cfg.Namespace),
		dlq:      NewDeadLetterQueue(client, cfg.Namespace, cfg.DLQSize),
		retry:    NewExponentialBackoff(cfg.Backoff.Base, cfg.Backoff.Max, cfg.Backoff.Multiplier, cfg.Backoff.Jitter),
		logger:   log.G,
		now:      time.Now,
		reg:      prometheus.DefaultRegisterer,
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = NewMetrics("scheduler", s.reg)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	pool, err := ants.NewPool(cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("scheduler: create pool: %w", err)
	}
	s.pool = pool

	promoter, err := s.newPromoter(cfg.PromoteSpec)
	if err != nil {
		pool.Release()
		return nil, fmt.Errorf("%w: promote spec %q: %v", ErrInvalidConfig, cfg.PromoteSpec, err)
	}
	s.promoter = promoter
	return s, nil
}

// Registry 处理器注册表，配合 Register 使用
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Enqueue 投递任务，带延迟的任务先进入延迟队列
func (s *Scheduler) Enqueue(ctx context.Context, task *Task) error {
	if task.MaxRetry < 0 {
		task.MaxRetry = s.cfg.MaxRetry
	}
	if err := task.Validate(); err != nil {
		return err
	}

	var err error
	if task.delay > 0 {
		err = s.queue.Schedule(ctx, task, s.now().Add(task.delay))
	} else {
		err = s.queue.Push(ctx, task)
	}
	if err != nil {
		return fmt.Errorf("scheduler: enqueue %s: %w", task.Type, err)
	}

	s.metrics.TaskEnqueued.WithLabelValues(task.Type).Inc()
	s.logger.Debug().Str("task_id", task.ID).Str("task_type", task.Type).Msg("task enqueued")
	return nil
}

// Stats 返回各队列长度
func (s *Scheduler) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Ready, err = s.queue.ReadyCount(ctx); err != nil {
		return st, err
	}
	if st.Delayed, err = s.queue.DelayedCount(ctx); err != nil {
		return st, err
	}
	st.Dead, err = s.dlq.Count(ctx)
	return st, err
}

// DeadLetters 返回最近进入死信队列的 n 个任务
func (s *Scheduler) DeadLetters(ctx context.Context, n int64) ([]Task, error) {
	if n <= 0 {
		return []Task{}, nil
	}
	return s.dlq.List(ctx, 0, n-1)
}
