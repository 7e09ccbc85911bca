package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

type handleFunc func(ctx context.Context, payload []byte) error

// Registry 任务处理器注册表
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]handleFunc
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]handleFunc)}
}

// Register 注册泛型任务处理器，载荷按 JSON 解码为 T
func Register[T any](r *Registry, taskType string, handler Handler[T]) error {
	if taskType == "" {
		return ErrInvalidTaskType
	}
	if handler == nil {
		return fmt.Errorf("scheduler: nil handler for %s", taskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[taskType]; exists {
		return fmt.Errorf("scheduler: handler for %s already registered", taskType)
	}
	r.handlers[taskType] = func(ctx context.Context, payload []byte) error {
		var typed T
		if err := json.Unmarshal(payload, &typed); err != nil {
			return fmt.Errorf("scheduler: unmarshal %s payload: %w", taskType, err)
		}
		return handler.Handle(ctx, typed)
	}
	return nil
}

func (r *Registry) get(taskType string) (handleFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, taskType)
	}
	return h, nil
}

// Has 检查是否注册了指定类型的处理器
func (r *Registry) Has(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[taskType]
	return ok
}

// List 列出已注册的任务类型，按字典序
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
