package scheduler

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// 任务执行结果标签
const (
	statusSuccess = "success"
	statusRetry   = "retry"
	statusDead    = "dead"
)

// Metrics Prometheus指标收集器
type Metrics struct {
	TaskEnqueued *prometheus.CounterVec   // 任务提交总数
	TaskExecuted *prometheus.CounterVec   // 任务执行总数（success/retry/dead）
	TaskDuration *prometheus.HistogramVec // 任务执行时长
	Promoted     prometheus.Counter       // 延迟任务迁移数
}

// NewMetrics 创建指标并注册到 reg，reg 为 nil 时不注册
//
// 同名指标已注册时复用已有的收集器，多个调度器实例可共享同一个 Registerer。
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TaskEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_enqueued_total",
			Help:      "Total number of enqueued tasks",
		}, []string{"type"}),
		TaskExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_executed_total",
			Help:      "Total number of executed tasks",
		}, []string{"type", "status"}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task execution duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"type"}),
		Promoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_promoted_total",
			Help:      "Total number of delayed tasks moved to the ready queue",
		}),
	}
	if reg == nil {
		return m
	}

	m.TaskEnqueued = register(reg, m.TaskEnqueued)
	m.TaskExecuted = register(reg, m.TaskExecuted)
	m.TaskDuration = register(reg, m.TaskDuration)
	m.Promoted = register(reg, m.Promoted)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
