package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kochabx/passport/core/tag"
)

// Config Kafka 生产者配置
type Config struct {
	Brokers  []string `mapstructure:"brokers" default:"localhost:9092"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	// Balancer 为 least_bytes 或 hash，hash 保证同一 key 落在同一分区
	Balancer               string        `mapstructure:"balancer" default:"hash" validate:"oneof=least_bytes hash"`
	AllowAutoTopicCreation bool          `mapstructure:"allow_auto_topic_creation"`
	DialTimeout            time.Duration `mapstructure:"dial_timeout" default:"3s"`
	BatchTimeout           time.Duration `mapstructure:"batch_timeout" default:"100ms"`
	CloseTimeout           time.Duration `mapstructure:"close_timeout" default:"5s"`
}

func (c *Config) balancer() kafka.Balancer {
	if c.Balancer == "least_bytes" {
		return &kafka.LeastBytes{}
	}
	return &kafka.Hash{}
}

func (c *Config) applyDefaults() error {
	return tag.ApplyDefaults(c)
}
