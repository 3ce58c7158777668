// Package inject 是应用程序的入口，组合配置、日志、依赖注入容器与托管服务。
//
//	inject.Run(func(b *core.ApplicationBuilder) {
//	    b.Configure(configure.Web(func(w *web.Builder) { ... }))
//	})
package inject

import "github.com/gocrud/inject/core"

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder()
}

// Run 构建应用并运行到收到退出信号或托管服务失败
func Run(configure func(*core.ApplicationBuilder)) error {
	builder := core.NewApplicationBuilder()
	if configure != nil {
		configure(builder)
	}
	app, err := builder.Build()
	if err != nil {
		return err
	}
	return app.Run()
}
