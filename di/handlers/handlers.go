// Package handlers 提供常用的容器处理器：实现映射、类型集合注入、工厂创建与后置构造。
package handlers

// Set 一组默认处理器，字段可用于在构建前后追加绑定
type Set struct {
	Implementations *ImplementationHandler
	Registry        *TypeRegistry
	AllTypes        *AllTypesHandler
	Factories       *FactoryHandler
	PostConstruct   PostConstructInvoker
}

// NewSet 创建默认处理器集合，类型目录由集合独享
func NewSet() *Set {
	registry := NewTypeRegistry()
	return &Set{
		Implementations: NewImplementationHandler(),
		Registry:        registry,
		AllTypes:        NewAllTypesHandler(registry),
		Factories:       NewFactoryHandler(),
	}
}

// Handlers 返回可以交给 di.Builder.AddHandlers 的处理器列表
func (s *Set) Handlers() []any {
	return []any{s.Implementations, s.AllTypes, s.Factories, s.PostConstruct}
}

// DefaultHandlers 返回一组新的默认处理器
func DefaultHandlers() []any {
	return NewSet().Handlers()
}
