package config

import (
	"errors"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/core/validator"
	kerrors "github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
)

// FileLoader 从 YAML 文件与环境变量加载配置
//
// 优先级：环境变量 > 配置文件 > default 标签。
// 环境变量名由 mapstructure 路径转换而来，如 jwt.secret 对应 JWT_SECRET。
type FileLoader struct {
	viper    *viper.Viper
	validate validator.Validator
	envFiles []string
	prefix   string
}

// FileOption 文件加载器选项
type FileOption func(*FileLoader)

// WithDotenv 加载前读取 dotenv 文件，已存在的环境变量不会被覆盖
func WithDotenv(files ...string) FileOption {
	return func(l *FileLoader) { l.envFiles = files }
}

// WithPrefix 设置环境变量前缀
func WithPrefix(prefix string) FileOption {
	return func(l *FileLoader) { l.prefix = prefix }
}

// WithValidate 设置校验器，nil 表示不校验
func WithValidate(v validator.Validator) FileOption {
	return func(l *FileLoader) { l.validate = v }
}

// NewFileLoader 创建文件加载器
func NewFileLoader(name string, paths []string, opts ...FileOption) *FileLoader {
	l := &FileLoader{viper: viper.New()}
	for _, opt := range opts {
		opt(l)
	}

	for _, p := range paths {
		l.viper.AddConfigPath(p)
	}
	l.viper.SetConfigName(strings.TrimSuffix(name, path.Ext(name)))
	l.viper.SetConfigType(strings.TrimPrefix(path.Ext(name), "."))
	if l.prefix != "" {
		l.viper.SetEnvPrefix(l.prefix)
	}
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()
	return l
}

// Load 实现 Loader
func (l *FileLoader) Load(target any) error {
	for _, f := range l.envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return kerrors.Configuration("load env file %s: %v", f, err)
		}
	}

	if err := tag.ApplyDefaults(target); err != nil {
		return kerrors.Configuration("apply defaults: %v", err)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return kerrors.Configuration("read config: %v", err)
		}
		log.Warn().Msg("config file not found, using defaults and environment")
	}

	bindEnvs(l.viper, reflect.TypeOf(target), "")

	if err := l.viper.Unmarshal(target); err != nil {
		return kerrors.Configuration("parse config: %v", err)
	}

	if l.validate != nil {
		if err := l.validate.Struct(target); err != nil {
			return kerrors.Configuration("invalid config: %v", err)
		}
	}
	return nil
}

// Watch 实现 Loader
func (l *FileLoader) Watch(callback func()) error {
	if l.viper.ConfigFileUsed() == "" {
		return kerrors.Configuration("no config file to watch")
	}
	l.viper.OnConfigChange(func(fsnotify.Event) {
		if callback != nil {
			callback()
		}
	})
	l.viper.WatchConfig()
	return nil
}

// bindEnvs 为每个叶子字段注册环境变量，使 Unmarshal 能看到文件中未出现的键
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			bindEnvs(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}
