package db

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kochabx/passport/log"
)

var (
	ErrUnsupportedDriver = errors.New("db: unsupported driver")
	ErrInvalidConfig     = errors.New("db: invalid configuration")
)

// Client 数据库客户端
type Client struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *log.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithLogger 设置日志记录器
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New 打开连接并检查连通性
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.init(); err != nil {
		return nil, err
	}
	c := &Client{logger: log.G}
	for _, opt := range opts {
		opt(c)
	}

	dialector, err := dialect(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(gormWriter{c.logger}, logger.Config{
			SlowThreshold:             cfg.SlowQuery,
			LogLevel:                  cfg.gormLevel(),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)
	c.db, c.sqlDB = db, sqlDB

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.logger.Info().Str("driver", string(cfg.Driver)).Msg("database client created")
	return c, nil
}

func dialect(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

// DB 返回 gorm 实例
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping 检查连通性
func (c *Client) Ping(ctx context.Context) error {
	return c.sqlDB.PingContext(ctx)
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.sqlDB.Close()
}

// Stats 连接池统计
func (c *Client) Stats() sql.DBStats {
	return c.sqlDB.Stats()
}

// gormWriter 将 gorm 日志转到 log
type gormWriter struct {
	logger *log.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.logger.Warn().Str("component", "gorm").Msgf(format, args...)
}
