package handlers

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/inject/di"
)

// Factory 由工厂类型实现。工厂本身也由容器解析，可以声明自己的依赖
type Factory interface {
	Create() (any, error)
}

var factoryType = di.TypeOf[Factory]()

// FactoryHandler 实例化策略，绑定的类型交给对应工厂创建
type FactoryHandler struct {
	mu        sync.RWMutex
	factories map[reflect.Type]reflect.Type
}

// NewFactoryHandler 创建工厂处理器
func NewFactoryHandler() *FactoryHandler {
	return &FactoryHandler{factories: make(map[reflect.Type]reflect.Type)}
}

// Bind 由 factory 类型的单例创建 t
func (h *FactoryHandler) Bind(t, factory reflect.Type) error {
	if t == nil || factory == nil {
		return fmt.Errorf("handlers: 绑定的类型不能为 nil")
	}
	if !factory.Implements(factoryType) {
		return fmt.Errorf("handlers: %v 没有实现 Factory", factory)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.factories[t]; ok && existing != factory {
		return fmt.Errorf("handlers: %v 已由 %v 创建", t, existing)
	}
	h.factories[t] = factory
	return nil
}

// Instantiation 实现 di.InstantiationProvider
func (h *FactoryHandler) Instantiation(_ *di.ResolutionContext, t reflect.Type) (di.Resolution, error) {
	h.mu.RLock()
	factory, ok := h.factories[t]
	h.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	deps := []di.Identifier{di.NewIdentifier(factory)}
	return di.NewResolution(deps, func(values []any) (any, error) {
		f, ok := values[0].(Factory)
		if !ok {
			return nil, fmt.Errorf("handlers: %T 没有实现 Factory", values[0])
		}
		v, err := f.Create()
		if err != nil {
			return nil, fmt.Errorf("handlers: %v 创建 %v 失败: %w", factory, t, err)
		}
		if v == nil || !reflect.TypeOf(v).AssignableTo(t) {
			return nil, fmt.Errorf("%w: 工厂 %v 返回 %T，期望 %v", di.ErrNotAssignable, factory, v, t)
		}
		return v, nil
	}), nil
}

// BindFactory 泛型版本的 FactoryHandler.Bind
func BindFactory[T any, F Factory](h *FactoryHandler) error {
	return h.Bind(di.TypeOf[T](), di.TypeOf[F]())
}
