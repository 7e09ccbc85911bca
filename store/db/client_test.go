package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/log"
)

func TestNewSQLite(t *testing.T) {
	c, err := New(Config{
		Driver: DriverSQLite,
		DSN:    "file:client_test?mode=memory&cache=shared",
		Pool:   PoolConfig{MaxOpenConns: 1},
	}, WithLogger(log.Nop()))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 1, c.Stats().MaxOpenConnections)

	var n int
	require.NoError(t, c.DB().Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(Config{Driver: "oracle", DSN: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestGormLevel(t *testing.T) {
	assert.EqualValues(t, 4, (&Config{LogLevel: "info"}).gormLevel())
	assert.EqualValues(t, 1, (&Config{LogLevel: "bogus"}).gormLevel())
}
