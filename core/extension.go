package core

import (
	"fmt"

	"github.com/gocrud/inject/di"
)

// Extension 应用扩展。扩展需要实现 InjectorConfigurator 或 AppConfigurator，或两者都实现
type Extension interface {
	// Name 返回扩展的名称，用于日志记录和错误信息
	Name() string
}

// InjectorConfigurator 在容器创建前追加处理器与构造函数
type InjectorConfigurator interface {
	ConfigureInjector(b *di.Builder)
}

// AppConfigurator 在容器创建后注册实例、托管服务与生命周期钩子
type AppConfigurator interface {
	ConfigureApp(ctx *BuildContext) error
}

func validateExtension(ext Extension) error {
	_, isInjector := ext.(InjectorConfigurator)
	_, isApp := ext.(AppConfigurator)
	if !isInjector && !isApp {
		return fmt.Errorf("app: 扩展 %q 没有实现 InjectorConfigurator 或 AppConfigurator", ext.Name())
	}
	return nil
}
