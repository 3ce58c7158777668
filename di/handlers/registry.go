package handlers

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/gocrud/inject/di"
)

// TypeRegistry 按名称登记的类型目录，每个容器持有自己的一份。
//
// 登记顺序即查询结果的顺序。
type TypeRegistry struct {
	mu    sync.RWMutex
	names map[string]reflect.Type
	types []reflect.Type
}

// NewTypeRegistry 创建空的类型目录
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{names: make(map[string]reflect.Type)}
}

// Add 以 name 登记类型 t。同名登记不同类型返回错误
func (r *TypeRegistry) Add(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("handlers: 类型名称不能为空")
	}
	if t == nil {
		return fmt.Errorf("handlers: 类型 %q 为 nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.names[name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("handlers: 名称 %q 已登记为 %v", name, existing)
	}
	r.names[name] = t
	if !slices.Contains(r.types, t) {
		r.types = append(r.types, t)
	}
	return nil
}

// Lookup 按名称查找类型
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.names[name]
	return t, ok
}

// Types 返回全部已登记的类型
func (r *TypeRegistry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.types)
}

// SubTypesOf 返回所有可以赋值给 bound 的已登记类型，不含 bound 本身
func (r *TypeRegistry) SubTypesOf(bound reflect.Type) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []reflect.Type
	for _, t := range r.types {
		if t != bound && t.AssignableTo(bound) {
			out = append(out, t)
		}
	}
	return out
}

// RegisterType 以 name 登记 T
func RegisterType[T any](r *TypeRegistry, name string) error {
	return r.Add(name, di.TypeOf[T]())
}
