package handlers

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/inject/di"
)

// ImplementationHandler 类型替换处理器，把抽象类型映射到注册的实现类型。
//
// 映射会递归跟随：Bind(A, B) 与 Bind(B, C) 之后请求 A 得到 C。
type ImplementationHandler struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]reflect.Type
	accepted atomic.Int64
}

// NewImplementationHandler 创建实现映射处理器
func NewImplementationHandler() *ImplementationHandler {
	return &ImplementationHandler{bindings: make(map[reflect.Type]reflect.Type)}
}

// Bind 请求 parent 时改为构造 child，child 必须可以赋值给 parent
func (h *ImplementationHandler) Bind(parent, child reflect.Type) error {
	if parent == nil || child == nil {
		return fmt.Errorf("handlers: 绑定的类型不能为 nil")
	}
	if parent == child {
		return fmt.Errorf("handlers: %v 不能绑定到自身", parent)
	}
	if !child.AssignableTo(parent) {
		return fmt.Errorf("%w: %v 无法赋值给 %v", di.ErrNotAssignable, child, parent)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.bindings[parent]; ok && existing != child {
		return fmt.Errorf("handlers: %v 已绑定到 %v", parent, existing)
	}
	h.bindings[parent] = child
	return nil
}

// Accept 实现 di.PreConstructHandler
func (h *ImplementationHandler) Accept(t reflect.Type) (reflect.Type, error) {
	h.accepted.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	current := t
	seen := map[reflect.Type]struct{}{t: {}}
	for {
		next, ok := h.bindings[current]
		if !ok {
			return current, nil
		}
		if _, loop := seen[next]; loop {
			return nil, fmt.Errorf("%w: %v 的实现映射形成环", di.ErrInvalidSubstitution, t)
		}
		seen[next] = struct{}{}
		current = next
	}
}

// Count 返回 Accept 被调用的次数
func (h *ImplementationHandler) Count() int64 {
	return h.accepted.Load()
}

// Bind 泛型版本的 ImplementationHandler.Bind
//
//	handlers.Bind[UserRepository, *mysqlUserRepository](impl)
func Bind[P, C any](h *ImplementationHandler) error {
	return h.Bind(di.TypeOf[P](), di.TypeOf[C]())
}
