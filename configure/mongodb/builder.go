package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/logging"
)

// Builder MongoDB 配置构建器
type Builder struct {
	ctx     *core.BuildContext
	configs []MongoOptions
	errs    []error
}

// NewBuilder 创建构建器，ctx 可以为 nil
func NewBuilder(ctx *core.BuildContext) *Builder {
	return &Builder{ctx: ctx}
}

// Add 添加 MongoDB 客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}
	return b.add(opts)
}

// AddFromConfig 从配置节读取客户端参数，例如 "mongodb:default"
func (b *Builder) AddFromConfig(name, section string) *Builder {
	if b.ctx == nil {
		b.errs = append(b.errs, fmt.Errorf("mongo 客户端 %q: 没有可用的配置", name))
		return b
	}
	opts := NewDefaultOptions(name, "")
	if err := b.ctx.Configuration().Bind(section, opts); err != nil {
		b.errs = append(b.errs, fmt.Errorf("mongo 客户端 %q: %w", name, err))
		return b
	}
	opts.Name = name
	return b.add(opts)
}

func (b *Builder) add(opts *MongoOptions) *Builder {
	for _, c := range b.configs {
		if c.Name == opts.Name {
			b.errs = append(b.errs, fmt.Errorf("mongo 客户端 %q 重复配置", opts.Name))
			return b
		}
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("mongo 客户端 %q 配置无效: %w", opts.Name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 MongoDB 工厂
func (b *Builder) Build(logger logging.Logger) (*MongoFactory, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	factory := NewMongoFactory()
	for _, opts := range b.configs {
		if _, err := factory.Register(opts); err != nil {
			_ = factory.Close(context.Background())
			return nil, err
		}
		logger.Info("mongo 客户端已注册",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "database", Value: opts.Database})
	}
	return factory, nil
}
