package scheduler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DeadLetterQueue 死信队列，新任务在头部
type DeadLetterQueue struct {
	client    redis.UniversalClient
	namespace string
	maxSize   int
}

// NewDeadLetterQueue 创建死信队列，maxSize <= 0 时不限容量
func NewDeadLetterQueue(client redis.UniversalClient, namespace string, maxSize int) *DeadLetterQueue {
	return &DeadLetterQueue{client: client, namespace: namespace, maxSize: maxSize}
}

func (d *DeadLetterQueue) key() string {
	return d.namespace + ":dlq"
}

// Add 添加任务到死信队列
func (d *DeadLetterQueue) Add(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}

	pipe := d.client.TxPipeline()
	pipe.LPush(ctx, d.key(), data)
	if d.maxSize > 0 {
		pipe.LTrim(ctx, d.key(), 0, int64(d.maxSize-1))
	}
	_, err = pipe.Exec(ctx)
	return err
}

// List 返回 [start, stop] 区间内的死信任务（不移除）
func (d *DeadLetterQueue) List(ctx context.Context, start, stop int64) ([]Task, error) {
	items, err := d.client.LRange(ctx, d.key(), start, stop).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		var t Task
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Pop 弹出最早进入死信队列的任务，队列为空返回 nil
func (d *DeadLetterQueue) Pop(ctx context.Context) (*Task, error) {
	item, err := d.client.RPop(ctx, d.key()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Task
	if err := json.Unmarshal([]byte(item), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Count 获取死信队列中的任务数量
func (d *DeadLetterQueue) Count(ctx context.Context) (int64, error) {
	return d.client.LLen(ctx, d.key()).Result()
}
