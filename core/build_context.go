package core

import (
	"context"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/di/handlers"
	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
)

// Configurator 配置器。容器创建完成后执行，用于注册实例、托管服务与清理逻辑
type Configurator func(*BuildContext) error

// BuildContext 提供给配置器的构建上下文
type BuildContext struct {
	injector      di.Injector
	handlers      *handlers.Set
	configuration config.Configuration
	logger        logging.Logger
	loggerFactory logging.LoggerFactory
	environment   Environment
	lifecycle     *LifecycleEvents

	hostedServices []hosting.HostedService
}

// Injector 返回应用的容器
func (c *BuildContext) Injector() di.Injector {
	return c.injector
}

// Handlers 返回容器使用的默认处理器，可以继续追加实现映射与工厂
func (c *BuildContext) Handlers() *handlers.Set {
	return c.handlers
}

// Configuration 返回应用配置
func (c *BuildContext) Configuration() config.Configuration {
	return c.configuration
}

// Logger 返回应用日志记录器
func (c *BuildContext) Logger() logging.Logger {
	return c.logger
}

// LoggerFactory 返回日志工厂，用于创建带分类的日志记录器
func (c *BuildContext) LoggerFactory() logging.LoggerFactory {
	return c.loggerFactory
}

// Environment 返回运行环境
func (c *BuildContext) Environment() Environment {
	return c.environment
}

// AddHostedService 添加托管服务
func (c *BuildContext) AddHostedService(services ...hosting.HostedService) {
	c.hostedServices = append(c.hostedServices, services...)
}

// OnStart 注册启动钩子
func (c *BuildContext) OnStart(fn func(context.Context) error) {
	c.lifecycle.OnStart(fn)
}

// OnStop 注册停止钩子，常用于关闭客户端连接
func (c *BuildContext) OnStop(fn func(context.Context) error) {
	c.lifecycle.OnStop(fn)
}

// Register 在容器中注册 T 的单例
func Register[T any](ctx *BuildContext, instance T) error {
	return di.Register[T](ctx.injector, instance)
}

// Bind 请求 P 时构造 C
func Bind[P, C any](ctx *BuildContext) error {
	return handlers.Bind[P, C](ctx.handlers.Implementations)
}

// RegisterType 在类型目录中以 name 登记 T，用于 alltypes 标签与 injector.eagerSingletons
func RegisterType[T any](ctx *BuildContext, name string) error {
	return handlers.RegisterType[T](ctx.handlers.Registry, name)
}

// DefaultClientName 以此名称发布的客户端同时注册为未命名的单例
const DefaultClientName = "default"

// Publish 把命名客户端发布到容器：总是可以通过 `di:"<name>"` 注入，
// 名称为 default 时也可以按类型直接注入
func Publish[T any](ctx *BuildContext, name string, client T) error {
	if err := ctx.injector.Provide(di.Named(name), client); err != nil {
		return err
	}
	if name == DefaultClientName {
		return di.Register[T](ctx.injector, client)
	}
	return nil
}
