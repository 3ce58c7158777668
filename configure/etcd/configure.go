// Package etcd 配置命名的 etcd 客户端并发布到容器，可选地监听配置变化。
package etcd

import (
	"context"
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/core"
)

// Configure 返回 etcd 配置器
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) error {
		builder := NewBuilder(ctx)
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.Logger())
		if err != nil {
			return fmt.Errorf("etcd: %w", err)
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

		if len(builder.watches) > 0 {
			reloadable, ok := ctx.Configuration().(config.Reloadable)
			if !ok {
				return fmt.Errorf("etcd: 应用配置不支持重新加载")
			}
			for _, w := range builder.watches {
				client, err := factory.Get(w.client)
				if err != nil {
					return fmt.Errorf("etcd: %w", err)
				}
				ctx.AddHostedService(NewConfigWatcher(client, w.prefix, reloadable, ctx.Logger()))
			}
		}

		ctx.OnStop(func(context.Context) error {
			ctx.Logger().Info("关闭 etcd 客户端")
			return factory.Close()
		})
		return nil
	}
}
