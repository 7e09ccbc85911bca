package main

import (
	"github.com/kochabx/passport/core/audit"
	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/auth/directory"
	"github.com/kochabx/passport/core/auth/jwt"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/notify"
	"github.com/kochabx/passport/core/scheduler"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/store/db"
	"github.com/kochabx/passport/store/kafka"
	"github.com/kochabx/passport/store/redis"
	khttp "github.com/kochabx/passport/transport/http"
)

// Settings 进程配置，对应 configs/config.yaml
//
// 环境变量按路径覆盖，如 JWT_SECRET、DIRECTORY_RESET_TOKEN_SECRET、
// AUTH_FRONTEND_BASE_URL、NOTIFY_RESEND_API_KEY。
type Settings struct {
	Name      string                `mapstructure:"name" default:"passport"`
	Log       log.Config            `mapstructure:"log"`
	HTTP      khttp.Config          `mapstructure:"http"`
	Redis     redis.Config          `mapstructure:"redis"`
	DB        db.Config             `mapstructure:"db"`
	Kafka     kafka.Config          `mapstructure:"kafka"`
	JWT       jwt.Config            `mapstructure:"jwt"`
	Session   session.Config        `mapstructure:"session"`
	Directory directory.Config      `mapstructure:"directory"`
	Admin     directory.AdminConfig `mapstructure:"admin"`
	Auth      auth.Config           `mapstructure:"auth"`
	Notify    notify.Config         `mapstructure:"notify"`
	Scheduler scheduler.Config      `mapstructure:"scheduler"`
	Audit     audit.Config          `mapstructure:"audit"`
}
