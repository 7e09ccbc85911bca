package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/log"
)

func TestNewDefaults(t *testing.T) {
	c, err := New(Config{}, log.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, c.cfg.Brokers)
	assert.Equal(t, 3*time.Second, c.cfg.DialTimeout)
	assert.IsType(t, &kafka.Hash{}, c.cfg.balancer())
	assert.Nil(t, c.transport.SASL)
}

func TestNewNoBrokers(t *testing.T) {
	_, err := New(Config{Brokers: []string{}}, nil)
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestProducerCachedPerTopic(t *testing.T) {
	c, err := New(Config{Username: "u", Password: "p", Balancer: "least_bytes"}, log.Nop())
	require.NoError(t, err)
	assert.NotNil(t, c.transport.SASL)

	w1 := c.Producer("auth-events", true, nil)
	w2 := c.Producer("auth-events", false, nil)
	w3 := c.Producer("other", false, nil)

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.True(t, w1.Async)
	assert.Equal(t, "auth-events", w1.Topic)
	assert.IsType(t, &kafka.LeastBytes{}, w1.Balancer)

	require.NoError(t, c.Close())
	assert.Empty(t, c.writers)
}
