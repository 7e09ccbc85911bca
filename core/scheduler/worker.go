package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Run 启动延迟任务迁移与任务拉取，阻塞直到 Shutdown
func (s *Scheduler) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.stopped)

	s.logger.Info().
		Str("namespace", s.cfg.Namespace).
		Int("concurrency", s.cfg.Concurrency).
		Strs("task_types", s.registry.List()).
		Msg("scheduler starting")
	s.promoter.Start()

	for s.ctx.Err() == nil {
		task, err := s.queue.Pop(s.ctx, s.cfg.PollTimeout)
		if err != nil {
			if s.ctx.Err() != nil {
				break
			}
			s.logger.Error().Err(err).Msg("failed to fetch task")
			select {
			case <-s.ctx.Done():
			case <-time.After(s.cfg.PollTimeout):
			}
			continue
		}
		if task == nil {
			continue
		}

		s.wg.Add(1)
		if err := s.pool.Submit(func() {
			defer s.wg.Done()
			s.execute(task)
		}); err != nil {
			s.wg.Done()
			// 协程池已关闭，放回队列等待下次消费
			if perr := s.queue.Push(context.Background(), task); perr != nil {
				s.logger.Error().Err(perr).Str("task_id", task.ID).Msg("task lost while shutting down")
			}
			break
		}
	}
	return nil
}

// Shutdown 停止拉取新任务并等待执行中的任务完成
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.running.Load() {
		select {
		case <-s.stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cronDone := s.promoter.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronDone.Done()
		close(done)
	}()

	defer s.pool.Release()
	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timeout, running tasks abandoned")
		return ctx.Err()
	}
}

func (s *Scheduler) execute(task *Task) {
	start := time.Now()
	handle, err := s.registry.get(task.Type)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TaskTimeout)
		err = safeHandle(ctx, handle, task.Payload)
		cancel()
	}
	s.metrics.TaskDuration.WithLabelValues(task.Type).Observe(time.Since(start).Seconds())

	if err == nil {
		s.metrics.TaskExecuted.WithLabelValues(task.Type, statusSuccess).Inc()
		s.logger.Debug().Str("task_id", task.ID).Str("task_type", task.Type).Msg("task completed")
		return
	}
	s.fail(task, err)
}

// fail 未超过重试上限的任务进入延迟队列，否则进入死信队列
func (s *Scheduler) fail(task *Task, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	task.LastError = cause.Error()
	l := s.logger.With().Str("task_id", task.ID).Str("task_type", task.Type).Int("retry", task.Retry).Logger()

	if !errors.Is(cause, ErrHandlerNotFound) && task.Retry < task.MaxRetry {
		delay := s.retry.NextRetry(task.Retry)
		task.Retry++
		err := s.queue.Schedule(ctx, task, s.now().Add(delay))
		if err == nil {
			s.metrics.TaskExecuted.WithLabelValues(task.Type, statusRetry).Inc()
			l.Warn().Err(cause).Dur("delay", delay).Msg("task failed, retry scheduled")
			return
		}
		l.Error().Err(err).Msg("failed to schedule retry")
	}

	s.metrics.TaskExecuted.WithLabelValues(task.Type, statusDead).Inc()
	if err := s.dlq.Add(ctx, task); err != nil {
		l.Error().Err(err).AnErr("cause", cause).Msg("task lost, dead letter queue unavailable")
		return
	}
	l.Error().Err(cause).Msg("task moved to dead letter queue")
}

func safeHandle(ctx context.Context, handle handleFunc, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handle(ctx, payload)
}
