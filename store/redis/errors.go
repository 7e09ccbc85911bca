package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNil key 不存在
	ErrNil = redis.Nil

	ErrInvalidConfig = errors.New("redis: invalid configuration")
	ErrEmptyAddrs    = errors.New("redis: addrs cannot be empty")
	ErrInvalidTTL    = errors.New("redis: ttl must be positive")
)

// IsNil 判断是否为 key 不存在
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
