// Package app 管理进程生命周期
//
// Application 并发运行所有 transport.Server（HTTP 服务、任务调度器），收到退出信号
// 或任一服务异常退出后依次关闭服务，再并发执行资源释放函数（Redis、数据库、Kafka 等）。
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/transport"
)

var (
	ErrAlreadyStarted = errors.New("application already started")
	ErrClosePanic     = errors.New("close function panicked")
	ErrNilServer      = errors.New("server cannot be nil")
	ErrNilClose       = errors.New("close function cannot be nil")
)

// Application 服务与资源的生命周期管理
type Application struct {
	name            string
	ctx             context.Context
	cancel          context.CancelFunc
	shutdownTimeout time.Duration
	closeTimeout    time.Duration
	signals         []os.Signal
	servers         []transport.Server
	closeFuncs      []CloseFunc
	logger          *log.Logger

	mu      sync.RWMutex
	started bool
}

// CloseFunc 退出时执行的资源释放函数
type CloseFunc struct {
	Name    string
	Fn      func(context.Context) error
	Timeout time.Duration
}

type Option func(*Application)

// WithName 应用名，仅用于日志
func WithName(name string) Option {
	return func(app *Application) { app.name = name }
}

// WithContext 设置根上下文，取消即触发关闭
func WithContext(ctx context.Context) Option {
	return func(app *Application) {
		if ctx != nil {
			app.ctx, app.cancel = context.WithCancel(ctx)
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(l *log.Logger) Option {
	return func(app *Application) {
		if l != nil {
			app.logger = l
		}
	}
}

// WithShutdownTimeout 单个服务的关闭超时
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(app *Application) {
		if timeout > 0 {
			app.shutdownTimeout = timeout
		}
	}
}

// WithCloseTimeout 释放函数的默认超时
func WithCloseTimeout(timeout time.Duration) Option {
	return func(app *Application) {
		if timeout > 0 {
			app.closeTimeout = timeout
		}
	}
}

// WithSignals 触发关闭的信号
func WithSignals(signals ...os.Signal) Option {
	return func(app *Application) {
		if len(signals) > 0 {
			app.signals = append([]os.Signal(nil), signals...)
		}
	}
}

// WithServers 添加服务，nil 被忽略
func WithServers(servers ...transport.Server) Option {
	return func(app *Application) {
		for _, s := range servers {
			if s != nil {
				app.servers = append(app.servers, s)
			}
		}
	}
}

// WithClose 添加释放函数，timeout 为 0 时使用默认超时
func WithClose(name string, fn func(context.Context) error, timeout time.Duration) Option {
	return func(app *Application) {
		if fn == nil {
			app.logger.Warn().Str("name", name).Msg("nil close function ignored")
			return
		}
		app.closeFuncs = append(app.closeFuncs, app.closeFunc(name, fn, timeout))
	}
}

// WithCloser 将 io.Closer 注册为释放函数
func WithCloser(name string, c io.Closer) Option {
	return func(app *Application) {
		if c == nil {
			return
		}
		app.closeFuncs = append(app.closeFuncs, app.closeFunc(name, func(context.Context) error {
			return c.Close()
		}, 0))
	}
}

// New 创建应用
func New(options ...Option) *Application {
	app := &Application{
		name:            "app",
		shutdownTimeout: 30 * time.Second,
		closeTimeout:    10 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT},
		logger:          log.G,
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	for _, opt := range options {
		opt(app)
	}
	return app
}

func (app *Application) closeFunc(name string, fn func(context.Context) error, timeout time.Duration) CloseFunc {
	if timeout <= 0 {
		timeout = app.closeTimeout
	}
	return CloseFunc{Name: name, Fn: fn, Timeout: timeout}
}

// AddServer 启动前追加服务
func (app *Application) AddServer(server transport.Server) error {
	if server == nil {
		return ErrNilServer
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	if app.started {
		return ErrAlreadyStarted
	}
	app.servers = append(app.servers, server)
	return nil
}

// RegisterClose 追加释放函数，启动后也可调用
func (app *Application) RegisterClose(name string, fn func(context.Context) error, timeout time.Duration) error {
	if fn == nil {
		return ErrNilClose
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	app.closeFuncs = append(app.closeFuncs, app.closeFunc(name, fn, timeout))
	return nil
}

// Start 运行所有服务并阻塞，直到收到信号、上下文取消或某个服务出错
func (app *Application) Start() error {
	app.mu.Lock()
	if app.started {
		app.mu.Unlock()
		return ErrAlreadyStarted
	}
	app.started = true
	servers := append([]transport.Server(nil), app.servers...)
	signals := append([]os.Signal(nil), app.signals...)
	app.mu.Unlock()

	app.logger.Info().Str("app", app.name).Int("servers", len(servers)).Msg("application starting")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)
	defer signal.Stop(sigCh)

	eg, ctx := errgroup.WithContext(app.ctx)
	for _, server := range servers {
		eg.Go(func() error {
			if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	eg.Go(func() error {
		select {
		case sig := <-sigCh:
			app.logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			app.cancel()
		case <-ctx.Done():
		}
		return nil
	})

	err := eg.Wait()
	app.runCloseTasks()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	app.logger.Info().Str("app", app.name).Msg("application stopped")
	return nil
}

// Stop 触发关闭
func (app *Application) Stop() {
	app.cancel()
}

// runCloseTasks 并发执行释放函数，失败只记录日志
func (app *Application) runCloseTasks() {
	app.mu.RLock()
	closeFuncs := append([]CloseFunc(nil), app.closeFuncs...)
	app.mu.RUnlock()

	var wg sync.WaitGroup
	for _, cf := range closeFuncs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = app.runCloseTask(cf)
		}()
	}
	wg.Wait()
}

func (app *Application) runCloseTask(cf CloseFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), cf.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				app.logger.Error().Interface("panic", r).Str("close", cf.Name).Msg("close function panicked")
				done <- ErrClosePanic
			}
		}()
		done <- cf.Fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			app.logger.Error().Err(err).Str("close", cf.Name).Msg("close function failed")
		}
		return err
	case <-ctx.Done():
		app.logger.Warn().Str("close", cf.Name).Msg("close function timed out")
		return ctx.Err()
	}
}

// Info 应用状态
func (app *Application) Info() Info {
	app.mu.RLock()
	defer app.mu.RUnlock()

	return Info{
		Name:        app.name,
		Started:     app.started,
		ServerCount: len(app.servers),
		CloseCount:  len(app.closeFuncs),
	}
}

// Info 应用状态快照
type Info struct {
	Name        string `json:"name"`
	Started     bool   `json:"started"`
	ServerCount int    `json:"server_count"`
	CloseCount  int    `json:"close_count"`
}
