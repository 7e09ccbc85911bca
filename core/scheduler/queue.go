package scheduler

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	//go:embed promote.lua
	promoteLua    string
	promoteScript = redis.NewScript(promoteLua)
)

// Queue 队列管理器
//
// 就绪队列为 LIST（LPUSH 入队，BRPOP 出队），延迟队列为 ZSET（分值为毫秒时间戳），
// 成员均为任务 JSON。
type Queue struct {
	client    redis.UniversalClient
	namespace string
}

// NewQueue 创建队列管理器
func NewQueue(client redis.UniversalClient, namespace string) *Queue {
	return &Queue{client: client, namespace: namespace}
}

func (q *Queue) keyReady() string   { return q.namespace + ":ready" }
func (q *Queue) keyDelayed() string { return q.namespace + ":delayed" }

// Push 任务进入就绪队列
func (q *Queue) Push(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.keyReady(), data).Err()
}

// Schedule 任务在 at 时刻之后进入就绪队列
func (q *Queue) Schedule(ctx context.Context, task *Task, at time.Time) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, q.keyDelayed(), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: data,
	}).Err()
}

// Pop 阻塞等待就绪任务，超时返回 nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := q.client.BRPop(ctx, timeout, q.keyReady()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res = [key, value]
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("scheduler: decode task: %w", err)
	}
	return &task, nil
}

// Promote 将到期的延迟任务移到就绪队列，返回迁移数量
func (q *Queue) Promote(ctx context.Context, now time.Time, limit int) (int64, error) {
	return promoteScript.Run(ctx, q.client,
		[]string{q.keyDelayed(), q.keyReady()},
		now.UnixMilli(), limit,
	).Int64()
}

// ReadyCount 就绪任务数
func (q *Queue) ReadyCount(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.keyReady()).Result()
}

// DelayedCount 延迟任务数
func (q *Queue) DelayedCount(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.keyDelayed()).Result()
}

// Clear 清空就绪与延迟队列
func (q *Queue) Clear(ctx context.Context) error {
	return q.client.Del(ctx, q.keyReady(), q.keyDelayed()).Err()
}
