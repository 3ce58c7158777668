// Package web 以托管服务的形式运行 gin 服务器，控制器从容器解析。
package web

import (
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/core"
)

// SectionName 读取 web 设置的配置节
const SectionName = "web"

// Configure 返回 Web 配置器。主机注册为单例并加入托管服务
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) error {
		builder := NewBuilder(ctx.Logger().WithCategory("web"))
		if _, ok := ctx.Configuration().Lookup(SectionName); ok {
			settings, err := config.Load[Settings](ctx.Configuration(), SectionName)
			if err != nil {
				return fmt.Errorf("web: %w", err)
			}
			builder.UseSettings(settings)
		}
		if options != nil {
			options(builder)
		}

		host, err := builder.Build(ctx.Injector())
		if err != nil {
			return fmt.Errorf("web: %w", err)
		}
		if err := core.Register(ctx, host); err != nil {
			return err
		}
		ctx.AddHostedService(host)
		return nil
	}
}
