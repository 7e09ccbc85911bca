package kafka

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"golang.org/x/sync/errgroup"

	"github.com/kochabx/passport/log"
)

var ErrNoBrokers = errors.New("kafka: brokers cannot be empty")

// Writer 消息写入接口，*kafka.Writer 实现了它
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Client 按主题缓存生产者
type Client struct {
	cfg       Config
	transport *kafka.Transport
	logger    *log.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// New 创建客户端，连接在首次写入时建立
func New(cfg Config, logger *log.Logger) (*Client, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if logger == nil {
		logger = log.G
	}

	transport := &kafka.Transport{
		Dial: (&net.Dialer{Timeout: cfg.DialTimeout}).DialContext,
	}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	return &Client{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
		writers:   make(map[string]*kafka.Writer),
	}, nil
}

// Producer 返回主题的生产者
// async 为 true 时写入立即返回，结果通过 completion 回调上报，回调可为 nil
func (c *Client) Producer(topic string, async bool, completion func([]kafka.Message, error)) *kafka.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               c.cfg.balancer(),
		Transport:              c.transport,
		AllowAutoTopicCreation: c.cfg.AllowAutoTopicCreation,
		BatchTimeout:           c.cfg.BatchTimeout,
		Async:                  async,
		Completion:             completion,
		ErrorLogger: kafka.LoggerFunc(func(format string, args ...any) {
			c.logger.Warn().Str("topic", topic).Msgf(format, args...)
		}),
	}
	c.writers[topic] = w
	return w
}

// Close 关闭全部生产者，异步生产者会先刷出缓冲消息
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CloseTimeout)
	defer cancel()

	eg, _ := errgroup.WithContext(ctx)
	for _, w := range c.writers {
		eg.Go(w.Close)
	}
	err := eg.Wait()
	c.writers = make(map[string]*kafka.Writer)
	return err
}
