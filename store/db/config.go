package db

import (
	"strings"
	"time"

	"gorm.io/gorm/logger"

	"github.com/kochabx/passport/core/tag"
)

// Driver 数据库驱动
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Config 数据库配置
//
// DSN 示例:
//
//	mysql:    user:pass@tcp(localhost:3306)/passport?charset=utf8mb4&parseTime=true&loc=Local
//	postgres: host=localhost user=postgres password=x dbname=passport sslmode=disable
//	sqlite:   file:passport.db?_busy_timeout=5000
type Config struct {
	Driver   Driver     `mapstructure:"driver" default:"sqlite" validate:"oneof=mysql postgres sqlite"`
	DSN      string     `mapstructure:"dsn" default:"file:passport.db?_busy_timeout=5000"`
	LogLevel string     `mapstructure:"log_level" default:"warn"`
	Pool     PoolConfig `mapstructure:"pool"`
	// SlowQuery 慢查询阈值
	SlowQuery      time.Duration `mapstructure:"slow_query" default:"200ms"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" default:"5s"`
	AutoMigrate    bool          `mapstructure:"auto_migrate" default:"true"`
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns" default:"10"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" default:"100"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" default:"1h"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" default:"10m"`
}

func (c *Config) init() error {
	if err := tag.ApplyDefaults(c); err != nil {
		return err
	}
	if c.DSN == "" {
		return ErrInvalidConfig
	}
	return nil
}

func (c *Config) gormLevel() logger.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
