package redis

import (
	"errors"
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/logging"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	cfg     config.Configuration
	configs []RedisClientOptions
	errs    []error
}

// NewBuilder 创建 Redis 构建器，cfg 为 nil 时 AddFromConfig 读取空配置
func NewBuilder(cfg config.Configuration) *Builder {
	if cfg == nil {
		cfg = config.NewInMemory(nil)
	}
	return &Builder{cfg: cfg}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*RedisClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	return b.add(opts)
}

// AddFromConfig 以默认值为基础读取配置节，例如 "redis:cache"
func (b *Builder) AddFromConfig(name, section string) *Builder {
	opts := NewDefaultOptions(name)
	if err := b.cfg.Bind(section, opts); err != nil {
		b.errs = append(b.errs, fmt.Errorf("redis 客户端 %q: %w", name, err))
		return b
	}
	opts.Name = name
	return b.add(opts)
}

func (b *Builder) add(opts *RedisClientOptions) *Builder {
	for _, c := range b.configs {
		if c.Name == opts.Name {
			b.errs = append(b.errs, fmt.Errorf("redis 客户端 %q 重复配置", opts.Name))
			return b
		}
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("redis 客户端 %q 配置无效: %w", opts.Name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 Redis 客户端工厂，没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*RedisClientFactory, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	factory := NewRedisClientFactory()
	for _, opts := range b.configs {
		if _, err := factory.Register(opts); err != nil {
			_ = factory.Close()
			return nil, err
		}
		logger.Info("redis 客户端已注册",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "addr", Value: opts.Addr},
			logging.Field{Key: "db", Value: opts.DB})
	}
	return factory, nil
}
