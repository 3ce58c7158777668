// Package database 以 gorm 为基础配置命名的数据库连接并发布到容器。
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	ctx     *core.BuildContext
	configs []DatabaseOptions
	errs    []error
}

// NewBuilder 创建构建器，ctx 可以为 nil
func NewBuilder(ctx *core.BuildContext) *Builder {
	return &Builder{ctx: ctx}
}

// Configuration 返回应用配置，用于读取连接参数
func (b *Builder) Configuration() config.Configuration {
	if b.ctx == nil {
		return config.NewInMemory(nil)
	}
	return b.ctx.Configuration()
}

// Add 添加数据库配置
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	for _, c := range b.configs {
		if c.Name == name {
			b.errs = append(b.errs, fmt.Errorf("数据库 %q 重复配置", name))
			return b
		}
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("数据库 %q 配置无效: %w", name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// SqliteSettings 配置文件中的 sqlite 连接参数
type SqliteSettings struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"maxOpenConns"`
	MaxIdleConns int    `json:"maxIdleConns"`
}

// AddSqlite 从配置节读取 sqlite 连接参数，例如 section 为 "database:default"
func (b *Builder) AddSqlite(name, section string, configure func(*DatabaseOptions)) *Builder {
	settings, err := config.Load[SqliteSettings](b.Configuration(), section)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("数据库 %q: %w", name, err))
		return b
	}
	return b.Add(name, sqlite.Open(settings.DSN), func(o *DatabaseOptions) {
		if settings.MaxOpenConns > 0 {
			o.MaxOpenConns = settings.MaxOpenConns
		}
		if settings.MaxIdleConns > 0 {
			o.MaxIdleConns = settings.MaxIdleConns
		}
		if configure != nil {
			configure(o)
		}
	})
}

// Build 打开所有连接。没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*DatabaseFactory, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	factory := NewDatabaseFactory()
	for _, opts := range b.configs {
		if _, err := factory.Open(opts); err != nil {
			_ = factory.Close()
			return nil, err
		}
		logger.Info("数据库已连接",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "dialector", Value: opts.Dialector.Name()})
	}
	return factory, nil
}

// Configure 返回数据库配置器：工厂注册为单例，每个连接以名称发布，default 连接可按类型注入
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) error {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.Logger())
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if factory == nil {
			return nil
		}

		if err := core.Register(ctx, factory); err != nil {
			return err
		}
		for _, name := range factory.Names() {
			db, _ := factory.Get(name)
			if err := core.Publish(ctx, name, db); err != nil {
				return err
			}
		}

		ctx.OnStop(func(context.Context) error {
			ctx.Logger().Info("关闭数据库连接")
			return factory.Close()
		})
		return nil
	}
}
