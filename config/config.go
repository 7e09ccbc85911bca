package config

import (
	"sync"

	"github.com/kochabx/passport/core/validator"
	"github.com/kochabx/passport/log"
)

// Loader 配置加载器
type Loader interface {
	// Load 将配置写入 target
	Load(target any) error
	// Watch 监听配置变化，变化时回调
	Watch(callback func()) error
}

// Config 管理应用配置的加载与热更新
type Config struct {
	mu        sync.RWMutex
	target    any
	loader    Loader
	onChange  []func()
	name      string
	paths     []string
	envFiles  []string
	envPrefix string
	validate  validator.Validator
}

// Option 配置选项
type Option func(*Config)

// WithFile 设置配置文件名与搜索路径
func WithFile(name string, paths ...string) Option {
	return func(c *Config) {
		c.name = name
		if len(paths) > 0 {
			c.paths = paths
		}
	}
}

// WithEnvFiles 设置 dotenv 文件，文件不存在时忽略
func WithEnvFiles(files ...string) Option {
	return func(c *Config) {
		c.envFiles = files
	}
}

// WithEnvPrefix 设置环境变量前缀，如 PASSPORT 对应 PASSPORT_JWT_SECRET
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithLoader 替换默认的文件加载器
func WithLoader(l Loader) Option {
	return func(c *Config) {
		c.loader = l
	}
}

// WithValidator 替换校验器
func WithValidator(v validator.Validator) Option {
	return func(c *Config) {
		c.validate = v
	}
}

// OnChange 注册热更新回调，回调在配置重新加载成功后执行
func OnChange(fn func()) Option {
	return func(c *Config) {
		c.onChange = append(c.onChange, fn)
	}
}

// New 创建配置管理器
// 默认读取 ./config.yaml 或 ./configs/config.yaml，并加载 .env
func New(target any, opts ...Option) *Config {
	c := &Config{
		target:   target,
		name:     "config.yaml",
		paths:    []string{".", "./configs"},
		envFiles: []string{".env"},
		validate: validator.Validate,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loader == nil {
		c.loader = NewFileLoader(c.name, c.paths,
			WithDotenv(c.envFiles...),
			WithPrefix(c.envPrefix),
			WithValidate(c.validate),
		)
	}
	return c
}

// Load 加载配置
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loader.Load(c.target)
}

// Watch 开启热更新
func (c *Config) Watch() error {
	return c.loader.Watch(func() {
		log.Info().Msg("config change detected")
		if err := c.Load(); err != nil {
			log.Error().Err(err).Msg("failed to reload config")
			return
		}
		for _, fn := range c.onChange {
			fn()
		}
		log.Info().Msg("config reloaded")
	})
}

// Read 在读锁下访问配置
func (c *Config) Read(fn func(target any)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.target)
}
