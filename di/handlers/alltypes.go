package handlers

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gocrud/inject/di"
)

// TagKindAllTypes 标签类型。`di:",alltypes=Handler"` 注入目录中所有 Handler 的子类型
const TagKindAllTypes = "alltypes"

var (
	// ErrUnknownType 标签引用了目录中不存在的类型名称
	ErrUnknownType = errors.New("handlers: 类型目录中不存在该名称")

	// ErrUnsupportedCollection 注入点既不是 []reflect.Type 也不是 map[reflect.Type]struct{}
	ErrUnsupportedCollection = errors.New("handlers: 不支持的集合类型")
)

var (
	typeSliceType = di.TypeOf[[]reflect.Type]()
	typeSetType   = di.TypeOf[map[reflect.Type]struct{}]()
)

// AllTypesHandler 依赖覆盖处理器，为带 alltypes 标签的注入点提供类型集合
type AllTypesHandler struct {
	registry *TypeRegistry
}

// NewAllTypesHandler 基于类型目录创建处理器
func NewAllTypesHandler(registry *TypeRegistry) *AllTypesHandler {
	return &AllTypesHandler{registry: registry}
}

// Registry 返回处理器使用的类型目录
func (h *AllTypesHandler) Registry() *TypeRegistry {
	return h.registry
}

// ResolveValue 实现 di.DependencyHandler
func (h *AllTypesHandler) ResolveValue(_ *di.ResolutionContext, id di.Identifier) (any, bool, error) {
	tag, ok := id.Tag(TagKindAllTypes)
	if !ok {
		return nil, false, nil
	}
	if tag.Value == "" {
		return nil, false, fmt.Errorf("handlers: %v 的 alltypes 标签缺少类型名称", id)
	}

	bound, ok := h.registry.Lookup(tag.Value)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownType, tag.Value)
	}
	subTypes := h.registry.SubTypesOf(bound)

	switch id.Type() {
	case typeSliceType:
		return subTypes, true, nil
	case typeSetType:
		set := make(map[reflect.Type]struct{}, len(subTypes))
		for _, t := range subTypes {
			set[t] = struct{}{}
		}
		return set, true, nil
	}
	return nil, false, fmt.Errorf("%w: %v", ErrUnsupportedCollection, id.Type())
}
