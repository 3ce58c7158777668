package di

import (
	"fmt"
	"reflect"
)

// PreConstructHandler 类型替换阶段
//
// Accept 返回与 t 不同的类型表示替换（例如接口到实现），原样返回表示不处理。
// 替换结果必须可以赋值给 t。
type PreConstructHandler interface {
	Accept(t reflect.Type) (reflect.Type, error)
}

// DependencyHandler 依赖覆盖阶段
//
// ok 为 true 时直接使用 value，跳过后续覆盖处理器与实例化策略；
// 返回错误会中止整个顶层解析。
type DependencyHandler interface {
	ResolveValue(ctx *ResolutionContext, id Identifier) (value any, ok bool, err error)
}

// InstantiationProvider 实例化策略阶段，返回 nil 表示不处理该类型
type InstantiationProvider interface {
	Instantiation(ctx *ResolutionContext, t reflect.Type) (Resolution, error)
}

// PostConstructHandler 后置构造阶段，所有处理器按注册顺序执行
type PostConstructHandler interface {
	PostConstruct(ctx *ResolutionContext, instance any) error
}

// PreConstructFunc 函数适配器
type PreConstructFunc func(t reflect.Type) (reflect.Type, error)

func (f PreConstructFunc) Accept(t reflect.Type) (reflect.Type, error) { return f(t) }

// DependencyHandlerFunc 函数适配器
type DependencyHandlerFunc func(ctx *ResolutionContext, id Identifier) (any, bool, error)

func (f DependencyHandlerFunc) ResolveValue(ctx *ResolutionContext, id Identifier) (any, bool, error) {
	return f(ctx, id)
}

// InstantiationFunc 函数适配器
type InstantiationFunc func(ctx *ResolutionContext, t reflect.Type) (Resolution, error)

func (f InstantiationFunc) Instantiation(ctx *ResolutionContext, t reflect.Type) (Resolution, error) {
	return f(ctx, t)
}

// PostConstructFunc 函数适配器
type PostConstructFunc func(ctx *ResolutionContext, instance any) error

func (f PostConstructFunc) PostConstruct(ctx *ResolutionContext, instance any) error {
	return f(ctx, instance)
}

// Resolution 实例化计划：需要哪些依赖，以及如何由依赖值得到实例
type Resolution interface {
	// Dependencies 依赖列表，多次调用必须返回相同结果
	Dependencies() []Identifier
	// InstantiateWith 必须恰好收到 len(Dependencies()) 个值，顺序一致
	InstantiateWith(values ...any) (any, error)
	// IsInstantiation 为 true 时表示新建了实例，后置构造处理器才会执行
	IsInstantiation() bool
}

type simpleResolution struct {
	value any
}

// SimpleResolution 直接返回给定值的计划，无依赖，不视为新建实例
func SimpleResolution(value any) Resolution {
	return simpleResolution{value: value}
}

func (r simpleResolution) Dependencies() []Identifier { return nil }

func (r simpleResolution) InstantiateWith(values ...any) (any, error) {
	if len(values) != 0 {
		return nil, fmt.Errorf("%w: 期望 0 个，得到 %d 个", ErrValueCountMismatch, len(values))
	}
	return r.value, nil
}

func (r simpleResolution) IsInstantiation() bool { return false }

type funcResolution struct {
	deps []Identifier
	fn   func(values []any) (any, error)
}

// NewResolution 由依赖列表和实例化函数构造计划，结果视为新建实例
func NewResolution(deps []Identifier, fn func(values []any) (any, error)) Resolution {
	return &funcResolution{deps: deps, fn: fn}
}

func (r *funcResolution) Dependencies() []Identifier { return r.deps }

func (r *funcResolution) InstantiateWith(values ...any) (any, error) {
	if len(values) != len(r.deps) {
		return nil, fmt.Errorf("%w: 期望 %d 个，得到 %d 个", ErrValueCountMismatch, len(r.deps), len(values))
	}
	return r.fn(values)
}

func (r *funcResolution) IsInstantiation() bool { return true }
