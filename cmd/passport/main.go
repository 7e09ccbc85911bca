// passport 认证服务
//
//	@title			Passport API
//	@version		1.0
//	@description	Session-backed authentication with JWT access tokens and rotating refresh cookies.
//	@BasePath		/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kochabx/passport/app"
	"github.com/kochabx/passport/config"
	"github.com/kochabx/passport/core/audit"
	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/auth/jwt"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/notify"
	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/core/scheduler"
	"github.com/kochabx/passport/log"
	middleware "github.com/kochabx/passport/middleware/http"
	"github.com/kochabx/passport/store/db"
	"github.com/kochabx/passport/store/kafka"
	"github.com/kochabx/passport/store/redis"
	khttp "github.com/kochabx/passport/transport/http"
	"github.com/kochabx/passport/transport/http/handler"
	httpmetrics "github.com/kochabx/passport/transport/http/metrics"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "path to the config file")
	envFile := flag.String("env", ".env", "path to the dotenv file")
	flag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		log.Error().Err(err).Msg("passport exited")
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	var cfg Settings
	c := config.New(&cfg,
		config.WithFile(filepath.Base(configFile), filepath.Dir(configFile), "."),
		config.WithEnvFiles(envFile),
	)
	if err := c.Load(); err != nil {
		return err
	}

	logger, err := log.New(cfg.Log)
	if err != nil {
		return err
	}
	log.SetGlobal(logger)

	ctx := context.Background()
	opts := []app.Option{app.WithName(cfg.Name), app.WithLogger(logger), app.WithCloser("logger", logger)}

	// 存储
	rdb, err := redis.New(cfg.Redis, redis.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	opts = append(opts, app.WithCloser("redis", rdb))

	database, err := db.New(cfg.DB, db.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	opts = append(opts, app.WithCloser("db", database))

	var events *kafka.Client
	if cfg.Audit.Enabled {
		if events, err = kafka.New(cfg.Kafka, logger); err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		opts = append(opts, app.WithCloser("kafka", events))
	}

	// 认证核心
	dir, err := directory.NewGorm(database.DB(), cfg.Directory)
	if err != nil {
		return err
	}
	if cfg.DB.AutoMigrate {
		if err := dir.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := directory.Seed(ctx, dir, cfg.Admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	codec, err := jwt.New(cfg.JWT)
	if err != nil {
		return err
	}
	sessions, err := session.NewManager(rdb, dir, cfg.Session, session.WithLogger(logger))
	if err != nil {
		return err
	}

	// 邮件通过任务队列异步投递
	tasks, err := scheduler.New(rdb.UniversalClient(), cfg.Scheduler,
		scheduler.WithLogger(logger),
		scheduler.WithRegisterer(httpmetrics.Prom.Registry()),
	)
	if err != nil {
		return err
	}
	sender, err := notify.NewSender(cfg.Notify, logger)
	if err != nil {
		return err
	}
	renderer, err := notify.NewRenderer()
	if err != nil {
		return err
	}
	if err := notify.NewHandlers(sender, renderer, logger).Register(tasks.Registry()); err != nil {
		return err
	}

	publisher, err := audit.New(cfg.Audit, events, logger)
	if err != nil {
		return err
	}

	svc, err := auth.NewService(cfg.Auth, dir, sessions, codec, notify.NewQueueNotifier(tasks),
		auth.WithAudit(publisher),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// HTTP
	r, err := khttp.NewEngine(cfg.HTTP)
	if err != nil {
		return err
	}
	r.Use(
		middleware.Recovery(middleware.RecoveryConfig{StackTrace: true, Logger: logger}),
		middleware.Logger(middleware.LoggerConfig{Logger: logger}),
		middleware.Cors(corsConfig(cfg.HTTP.Cors)),
		httpmetrics.Prom.Middleware(),
	)

	limiter := rate.NewSlidingWindowLimiter(rdb.UniversalClient(), cfg.Session.Prefix+"ratelimit:", cfg.HTTP.RateLimit.Window, cfg.HTTP.RateLimit.Limit)
	handler.NewAuthHandler(svc, cfg.HTTP.SecureCookies).Register(r.Group("/api"), handler.Guards{
		Auth:      middleware.Auth(middleware.AuthConfig{Verifier: codec, Versions: dir, Logger: logger}),
		Admin:     middleware.RequireRoles(directory.RoleAdmin),
		RateLimit: middleware.RateLimit(middleware.RateLimitConfig{Limiter: limiter, Logger: logger}),
	})

	if cfg.HTTP.Metrics.EnabledGoCollector {
		httpmetrics.Prom.WithGoCollectorRuntimeMetrics()
	}
	if cfg.HTTP.Metrics.EnabledBuildInfoCollector {
		httpmetrics.Prom.WithBuildInfoCollector()
	}

	server := khttp.NewServer(cfg.HTTP.Addr, r,
		khttp.WithMeta(khttp.Meta{Name: cfg.Name}),
		khttp.WithLogger(logger),
		khttp.WithReadHeaderTimeout(cfg.HTTP.ReadHeaderTimeout),
		khttp.WithMetricsOptions(cfg.HTTP.Metrics),
		khttp.WithSwagOptions(cfg.HTTP.Swag),
		khttp.WithHealthOptions(cfg.HTTP.Health),
		khttp.WithHealthCheck("redis", rdb.Ping),
		khttp.WithHealthCheck("db", database.Ping),
	)

	if err := c.Watch(); err != nil {
		logger.Debug().Err(err).Msg("config hot reload disabled")
	}

	return app.New(append(opts, app.WithServers(server, tasks))...).Start()
}

func corsConfig(o khttp.CorsOption) middleware.CorsConfig {
	cfg := middleware.DefaultCorsConfig(o.AllowOrigins...)
	if o.MaxAge > 0 {
		cfg.MaxAge = o.MaxAge
	}
	return cfg
}
