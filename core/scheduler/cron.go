package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// promoteBatchSize 单次迁移的延迟任务上限
const promoteBatchSize = 100

// newPromoter 按 spec 周期迁移到期的延迟任务
func (s *Scheduler) newPromoter(spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.Promote(ctx); err != nil {
			s.logger.Error().Err(err).Msg("failed to promote delayed tasks")
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Promote 迁移所有到期的延迟任务，返回迁移数量
func (s *Scheduler) Promote(ctx context.Context) (int64, error) {
	var total int64
	for {
		n, err := s.queue.Promote(ctx, s.now(), promoteBatchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < promoteBatchSize {
			break
		}
	}
	if total > 0 {
		s.metrics.Promoted.Add(float64(total))
		s.logger.Debug().Int64("count", total).Msg("delayed tasks promoted")
	}
	return total, nil
}
