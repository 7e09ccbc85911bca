package log

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/log/desensitize"
	"github.com/kochabx/passport/log/writer"
)

// Config 日志配置
type Config struct {
	Level  string `mapstructure:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" default:"console" validate:"oneof=console json"`
	// Output 为 stdout、file 或 both
	Output      string            `mapstructure:"output" default:"stdout" validate:"oneof=stdout file both"`
	Caller      bool              `mapstructure:"caller"`
	Desensitize bool              `mapstructure:"desensitize" default:"true"`
	File        writer.FileConfig `mapstructure:"file"`
}

// Logger 日志记录器
type Logger struct {
	zerolog.Logger
	hook   *desensitize.Hook
	closer io.Closer
}

func init() {
	zerolog.TimeFieldFormat = time.DateTime
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// New 按配置创建 Logger
func New(c Config) (*Logger, error) {
	if err := tag.ApplyDefaults(&c); err != nil {
		return nil, fmt.Errorf("log: apply defaults: %w", err)
	}
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	var console io.Writer = writer.Stdout()
	if c.Format == "console" {
		console = writer.Console()
	}

	l := &Logger{}
	var w io.Writer
	switch c.Output {
	case "file", "both":
		fw, err := writer.File(c.File)
		if err != nil {
			return nil, err
		}
		l.closer = fw
		w = fw
		if c.Output == "both" {
			w = zerolog.MultiLevelWriter(fw, console)
		}
	default:
		w = console
	}

	if c.Desensitize {
		l.hook = desensitize.NewHook(desensitize.BuiltinRules()...)
		w = desensitize.NewWriter(w, l.hook)
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if c.Caller {
		ctx = ctx.Caller()
	}
	l.Logger = ctx.Logger()
	return l, nil
}

// Nop 丢弃所有输出，用于测试
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// NewWriter 输出到任意 writer，默认启用内置脱敏规则
func NewWriter(w io.Writer) *Logger {
	hook := desensitize.NewHook(desensitize.BuiltinRules()...)
	return &Logger{
		Logger: zerolog.New(desensitize.NewWriter(w, hook)).With().Timestamp().Logger(),
		hook:   hook,
	}
}

// Hook 返回脱敏钩子，未启用时为 nil
func (l *Logger) Hook() *desensitize.Hook {
	return l.hook
}

// Close 关闭文件输出
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// G 全局日志实例
var G = NewWriter(writer.Console())

// SetGlobal 替换全局日志实例
func SetGlobal(l *Logger) {
	if l != nil {
		G = l
	}
}

func Debug() *zerolog.Event { return G.Debug() }

func Info() *zerolog.Event { return G.Info() }

func Warn() *zerolog.Event { return G.Warn() }

// Error 返回 error 级别事件（带堆栈）
func Error() *zerolog.Event { return G.Error().Stack() }

// Fatal 返回 fatal 级别事件（带堆栈）
func Fatal() *zerolog.Event { return G.Fatal().Stack() }

func Infof(format string, args ...any) {
	G.Info().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	G.Error().Stack().Msgf(format, args...)
}
