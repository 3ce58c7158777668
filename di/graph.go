package di

import (
	"reflect"
	"slices"
)

// resolutionChain 记录一次顶层解析中正在构造的类型，用于环检测
type resolutionChain struct {
	types   []reflect.Type
	waiting *cacheEntry // 正在等待其构造锁的条目，由 singletonCache.waits 保护
}

func (c *resolutionChain) check(t reflect.Type) error {
	if slices.Contains(c.types, t) {
		return c.cycle(t)
	}
	return nil
}

func (c *resolutionChain) cycle(t reflect.Type) *CycleError {
	chain := make([]reflect.Type, 0, len(c.types)+1)
	chain = append(chain, c.types...)
	return &CycleError{Chain: append(chain, t)}
}

func (c *resolutionChain) push(t reflect.Type) { c.types = append(c.types, t) }

func (c *resolutionChain) pop() { c.types = c.types[:len(c.types)-1] }

func (c *resolutionChain) top() reflect.Type {
	if len(c.types) == 0 {
		return nil
	}
	return c.types[len(c.types)-1]
}

// ResolutionContext 单次解析请求的上下文，在所有处理器之间传递。
//
// 每次顶层调用（GetSingleton、NewInstance 等）创建一个新的上下文，
// 嵌套依赖共享同一条构造链。上下文不能跨 goroutine 使用。
type ResolutionContext struct {
	identifier Identifier
	injector   *injector
	requester  reflect.Type
	chain      *resolutionChain
}

func newResolutionContext(inj *injector, id Identifier) *ResolutionContext {
	return &ResolutionContext{
		identifier: id,
		injector:   inj,
		chain:      &resolutionChain{},
	}
}

// child 为当前正在构造类型的一个依赖创建上下文
func (c *ResolutionContext) child(id Identifier) *ResolutionContext {
	return &ResolutionContext{
		identifier: id,
		injector:   c.injector,
		requester:  c.chain.top(),
		chain:      c.chain,
	}
}

// Identifier 当前请求的依赖标识
func (c *ResolutionContext) Identifier() Identifier { return c.identifier }

// Injector 所属容器
func (c *ResolutionContext) Injector() Injector { return c.injector }

// Requester 声明该依赖的类型，顶层请求返回 nil
func (c *ResolutionContext) Requester() reflect.Type { return c.requester }

// Chain 返回正在构造的类型链副本
func (c *ResolutionContext) Chain() []reflect.Type { return slices.Clone(c.chain.types) }

// Resolve 在当前构造链上解析嵌套依赖（单例作用域）。
//
// 处理器需要额外的依赖时应使用它而不是 Injector().GetSingleton，
// 后者会开始新的构造链，遇到正在构造的类型时无法报告循环。
func (c *ResolutionContext) Resolve(id Identifier) (any, error) {
	return c.injector.resolve(c.child(id), false)
}
