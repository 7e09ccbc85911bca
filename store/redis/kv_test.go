package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(Config{Addrs: []string{mr.Addr()}, Protocol: 2, SlowQuery: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewWithTelemetry(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(Config{Addrs: []string{mr.Addr()}, Protocol: 2, Tracing: true, Metrics: true})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetTTL(context.Background(), "k", "v", time.Minute))
	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Addrs: []string{}})
	assert.ErrorIs(t, err, ErrEmptyAddrs)

	_, err = New(Config{Addrs: []string{"a:1"}, DialTimeout: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Addrs: []string{"127.0.0.1:1"}, Protocol: 2, DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	assert.Error(t, err)
}

func TestStringOps(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "auth:k", "v"))
	got, err := c.Get(ctx, "auth:k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	ttl, err := c.TTL(ctx, "auth:k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "no expiry")

	_, err = c.Get(ctx, "auth:missing")
	assert.True(t, IsNil(err))

	assert.ErrorIs(t, c.SetTTL(ctx, "auth:t", "v", 0), ErrInvalidTTL)
	require.NoError(t, c.SetTTL(ctx, "auth:t", "v", time.Minute))
	ttl, err = c.TTL(ctx, "auth:t")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "auth:t")
	assert.ErrorIs(t, err, ErrNil)
}

func TestGetDelOnlyOnce(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetTTL(ctx, "auth:refresh:x", "sid", time.Minute))
	v, err := c.GetDel(ctx, "auth:refresh:x")
	require.NoError(t, err)
	assert.Equal(t, "sid", v)

	_, err = c.GetDel(ctx, "auth:refresh:x")
	assert.True(t, IsNil(err))
}

func TestDel(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetTTL(ctx, "a", "1", time.Minute))
	require.NoError(t, c.SetTTL(ctx, "b", "2", time.Minute))
	n, err := c.Del(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = c.Del(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSetOps(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	members, err := c.SMembers(ctx, "auth:user-sessions:u1")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, c.SAdd(ctx, "auth:user-sessions:u1", "s1", "s2"))
	require.NoError(t, c.SRem(ctx, "auth:user-sessions:u1", "s1"))
	members, err = c.SMembers(ctx, "auth:user-sessions:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, members)

	ok, err := c.Expire(ctx, "auth:user-sessions:u1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Expire(ctx, "auth:user-sessions:none", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConfigMode(t *testing.T) {
	assert.Equal(t, "single", (&Config{Addrs: []string{"a"}}).mode())
	assert.Equal(t, "cluster", (&Config{Addrs: []string{"a", "b"}}).mode())
	assert.Equal(t, "sentinel", (&Config{Addrs: []string{"a"}, MasterName: "m"}).mode())
}
