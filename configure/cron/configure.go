// Package cron 以托管服务的形式运行 robfig/cron 调度器，任务依赖从容器解析。
package cron

import (
	"fmt"

	"github.com/gocrud/inject/core"
)

// Configure 返回定时任务配置器。调度器注册为单例并加入托管服务
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) error {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		scheduler, err := builder.Build(ctx.Injector(), ctx.Logger())
		if err != nil {
			return fmt.Errorf("cron: %w", err)
		}
		if err := core.Register(ctx, scheduler); err != nil {
			return err
		}
		ctx.AddHostedService(scheduler)
		return nil
	}
}
