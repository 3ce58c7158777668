package di

import (
	"fmt"
	"reflect"
)

// AnySingletonStore 不带具体泛型参数的单例存储。
//
// 注入点声明为 AnySingletonStore 时无法确定上界，解析会以 ErrUnresolvedGeneric 失败。
type AnySingletonStore interface {
	Parameterized
	Bound() reflect.Type
}

var anyStoreType = TypeOf[AnySingletonStore]()

// storeBinder 由所有 SingletonStore[P] 实现，供内置处理器按反射类型创建视图
type storeBinder interface {
	bind(inj Injector) any
}

var storeBinderType = TypeOf[storeBinder]()

// SingletonStore 以 P 为上界的单例缓存只读视图
//
// 所有查询类型必须是 P 本身或可以赋值给 P，否则返回 *BoundError 且不会触发构造。
//
// 示例：
//
//	type Registry struct {
//		Handlers di.SingletonStore[Handler] `di:""`
//	}
//
//	all, _ := r.Handlers.RetrieveAll()
type SingletonStore[P any] struct {
	injector Injector
}

// NewSingletonStore 创建以 P 为上界的视图
func NewSingletonStore[P any](inj Injector) SingletonStore[P] {
	return SingletonStore[P]{injector: inj}
}

func (s SingletonStore[P]) bind(inj Injector) any { return NewSingletonStore[P](inj) }

// TypeParam 实现 Parameterized
func (s SingletonStore[P]) TypeParam() reflect.Type { return TypeOf[P]() }

// Bound 上界类型
func (s SingletonStore[P]) Bound() reflect.Type { return TypeOf[P]() }

func (s SingletonStore[P]) check(t reflect.Type) error {
	if s.injector == nil {
		return fmt.Errorf("di: 单例存储 %v 未绑定容器", s.Bound())
	}
	if t == nil || !t.AssignableTo(s.Bound()) {
		return &BoundError{Type: t, Bound: s.Bound()}
	}
	return nil
}

// GetSingleton 获取（必要时构造）t 的单例，t 必须在上界之内
func (s SingletonStore[P]) GetSingleton(t reflect.Type) (P, error) {
	var zero P
	if err := s.check(t); err != nil {
		return zero, err
	}
	v, err := s.injector.GetSingleton(t)
	if err != nil {
		return zero, err
	}
	return v.(P), nil
}

// RetrieveAll 返回缓存中所有可以赋值给 P 的单例
func (s SingletonStore[P]) RetrieveAll() ([]P, error) {
	return s.RetrieveAllOfType(s.Bound())
}

// RetrieveAllOfType 返回缓存中所有可以赋值给 t 的单例，不触发构造
func (s SingletonStore[P]) RetrieveAllOfType(t reflect.Type) ([]P, error) {
	if err := s.check(t); err != nil {
		return nil, err
	}
	values := s.injector.RetrieveAllOfType(t)
	out := make([]P, len(values))
	for i, v := range values {
		out[i] = v.(P)
	}
	return out, nil
}

// StoreGet 泛型版本的 GetSingleton
func StoreGet[C, P any](s SingletonStore[P]) (C, error) {
	var zero C
	v, err := s.GetSingleton(TypeOf[C]())
	if err != nil {
		return zero, err
	}
	c, ok := any(v).(C)
	if !ok {
		return zero, fmt.Errorf("di: resolved value is %T, expected %v", v, TypeOf[C]())
	}
	return c, nil
}

// StoreRetrieveAll 泛型版本的 RetrieveAllOfType
func StoreRetrieveAll[C, P any](s SingletonStore[P]) ([]C, error) {
	values, err := s.RetrieveAllOfType(TypeOf[C]())
	if err != nil {
		return nil, err
	}
	out := make([]C, len(values))
	for i, v := range values {
		out[i] = any(v).(C)
	}
	return out, nil
}

// singletonStoreHandler 为 SingletonStore[P] 类型的注入点创建视图
type singletonStoreHandler struct{}

func (singletonStoreHandler) ResolveValue(ctx *ResolutionContext, id Identifier) (any, bool, error) {
	t := id.Type()
	if t.Kind() == reflect.Interface || !t.Implements(storeBinderType) {
		return nil, false, nil
	}
	store := reflect.Zero(t).Interface().(storeBinder)
	return store.bind(ctx.Injector()), true, nil
}
