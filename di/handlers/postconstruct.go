package handlers

import (
	"fmt"

	"github.com/gocrud/inject/di"
)

// PostConstructor 由需要在依赖注入完成后初始化的类型实现
type PostConstructor interface {
	PostConstruct() error
}

// PostConstructInvoker 后置构造处理器，调用实例的 PostConstruct 方法
type PostConstructInvoker struct{}

// PostConstruct 实现 di.PostConstructHandler
func (PostConstructInvoker) PostConstruct(_ *di.ResolutionContext, instance any) error {
	pc, ok := instance.(PostConstructor)
	if !ok {
		return nil
	}
	if err := pc.PostConstruct(); err != nil {
		return fmt.Errorf("handlers: %T 初始化失败: %w", instance, err)
	}
	return nil
}
