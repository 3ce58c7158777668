// Package redis 配置命名的 go-redis 客户端并发布到容器。
package redis

import (
	"context"
	"fmt"

	"github.com/gocrud/inject/core"
)

// Configure 返回 Redis 配置器
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) error {
		builder := NewBuilder(ctx.Configuration())
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.Logger())
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if factory == nil {
			return nil
		}

		if err := core.Register(ctx, factory); err != nil {
			return err
		}
		for _, name := range factory.Names() {
			client, _ := factory.Get(name)
			if err := core.Publish(ctx, name, client); err != nil {
				return err
			}
		}

		ctx.OnStart(factory.Ping)
		ctx.OnStop(func(context.Context) error {
			ctx.Logger().Info("关闭 redis 客户端")
			return factory.Close()
		})
		return nil
	}
}
