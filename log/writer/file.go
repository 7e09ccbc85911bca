package writer

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// RotateBySize 按文件大小轮转（lumberjack）
	RotateBySize = "size"
	// RotateByTime 按时间轮转（rotatelogs）
	RotateByTime = "time"
)

// FileConfig 日志文件配置
type FileConfig struct {
	Dir        string        `mapstructure:"dir" default:"logs"`
	Name       string        `mapstructure:"name" default:"passport"`
	Rotate     string        `mapstructure:"rotate" default:"size" validate:"oneof=size time"`
	MaxSizeMB  int           `mapstructure:"max_size_mb" default:"100"`
	MaxBackups int           `mapstructure:"max_backups" default:"5"`
	MaxAge     time.Duration `mapstructure:"max_age" default:"168h"`
	Interval   time.Duration `mapstructure:"interval" default:"24h"`
	Compress   bool          `mapstructure:"compress"`
}

func (c FileConfig) path(suffix string) string {
	return filepath.Join(c.Dir, c.Name+suffix+".log")
}

// File 创建带轮转的文件 writer，返回值均实现 io.Closer
func File(c FileConfig) (io.WriteCloser, error) {
	switch c.Rotate {
	case RotateBySize, "":
		return &lumberjack.Logger{
			Filename:   c.path(""),
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     int(c.MaxAge / (24 * time.Hour)),
			Compress:   c.Compress,
		}, nil
	case RotateByTime:
		w, err := rotatelogs.New(
			c.path(".%Y%m%d%H%M"),
			rotatelogs.WithLinkName(c.path("")),
			rotatelogs.WithMaxAge(c.MaxAge),
			rotatelogs.WithRotationTime(c.Interval),
		)
		if err != nil {
			return nil, fmt.Errorf("writer: time rotate: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("writer: unsupported rotate mode %q", c.Rotate)
	}
}
