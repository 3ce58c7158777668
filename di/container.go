package di

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/inject/logging"
)

// Injector 依赖注入容器。
//
// 容器拥有自己的单例缓存，缓存只增不删，生命周期与容器一致。
// 所有方法都可以并发调用；同一类型的首次构造只会执行一次。
type Injector interface {
	// Register 将已构建的实例绑定为 t 的单例
	Register(t reflect.Type, instance any) error

	// Provide 绑定一个只能通过限定标签获取的值
	Provide(tag Tag, value any) error

	// GetSingleton 返回 t 的单例，不存在时构造它及其全部依赖
	GetSingleton(t reflect.Type) (any, error)

	// NewInstance 每次构造新的顶层实例，依赖仍然走单例缓存
	NewInstance(t reflect.Type) (any, error)

	// Resolve 按完整的依赖标识（类型加标签）解析
	Resolve(id Identifier) (any, error)

	// GetIfAvailable 只查询缓存，从不触发构造，也不调用任何处理器。
	// t 曾被前置处理器替换时，返回替换后类型的单例
	GetIfAvailable(t reflect.Type) (any, bool)

	// RetrieveAllOfType 返回缓存中所有可以赋值给 bound 的实例，按插入顺序
	RetrieveAllOfType(bound reflect.Type) []any
}

var injectorType = TypeOf[Injector]()

// injector 是 Injector 的实现。处理器顺序在 Build 时确定，之后不再变化。
type injector struct {
	preConstruct  []PreConstructHandler
	dependency    []DependencyHandler
	instantiation []InstantiationProvider
	postConstruct []PostConstructHandler

	maxDepth int
	logger   logging.Logger

	cache    *singletonCache
	mu       sync.RWMutex
	provided map[Tag][]any

	// substituted 记录解析过程中得到的替换结果，请求类型到实际类型
	substituted sync.Map
}

func newInjector(opts *options) *injector {
	inj := &injector{
		maxDepth: opts.maxSubstitutionDepth,
		logger:   opts.logger.WithCategory("di"),
		cache:    newSingletonCache(),
		provided: make(map[Tag][]any),
	}
	inj.cache.put(NewIdentifier(injectorType).Key(), Injector(inj))
	return inj
}

// Register 实现 Injector
func (i *injector) Register(t reflect.Type, instance any) error {
	if t == nil {
		return fmt.Errorf("%w: 类型为 nil", ErrNotAssignable)
	}
	if isNil(instance) {
		return fmt.Errorf("%w: %v 的实例为 nil", ErrNotAssignable, t)
	}
	if !reflect.TypeOf(instance).AssignableTo(t) {
		return fmt.Errorf("%w: %T 无法赋值给 %v", ErrNotAssignable, instance, t)
	}
	if _, stored := i.cache.put(NewIdentifier(t).Key(), instance); !stored {
		return fmt.Errorf("%w: %v", ErrDuplicateSingleton, t)
	}
	i.logger.Debug("注册单例", logging.Field{Key: "type", Value: t})
	return nil
}

// Provide 实现 Injector。值以 {值的类型, {tag}} 为键进入单例缓存
func (i *injector) Provide(tag Tag, value any) error {
	if isNil(value) {
		return fmt.Errorf("%w: 标签 %v 的值为 nil", ErrNotAssignable, tag)
	}
	t := reflect.TypeOf(value)
	if _, stored := i.cache.put(NewIdentifier(t, tag).Key(), value); !stored {
		return fmt.Errorf("%w: %v[%v]", ErrDuplicateSingleton, t, tag)
	}

	i.mu.Lock()
	i.provided[tag] = append(i.provided[tag], value)
	i.mu.Unlock()

	i.logger.Debug("提供标签值", logging.Field{Key: "tag", Value: tag}, logging.Field{Key: "type", Value: t})
	return nil
}

// GetSingleton 实现 Injector
func (i *injector) GetSingleton(t reflect.Type) (any, error) {
	return i.Resolve(NewIdentifier(t))
}

// Resolve 实现 Injector
func (i *injector) Resolve(id Identifier) (any, error) {
	return i.resolve(newResolutionContext(i, id), false)
}

// NewInstance 实现 Injector
func (i *injector) NewInstance(t reflect.Type) (any, error) {
	return i.resolve(newResolutionContext(i, NewIdentifier(t)), true)
}

// GetIfAvailable 实现 Injector
func (i *injector) GetIfAvailable(t reflect.Type) (any, bool) {
	if t == nil {
		return nil, false
	}
	if v, ok := i.cache.get(NewIdentifier(t).Key()); ok {
		return v, true
	}
	substituted, ok := i.substituted.Load(t)
	if !ok {
		return nil, false
	}
	return i.cache.get(NewIdentifier(substituted.(reflect.Type)).Key())
}

// RetrieveAllOfType 实现 Injector
func (i *injector) RetrieveAllOfType(bound reflect.Type) []any {
	var out []any
	if bound == nil {
		return out
	}
	for _, v := range i.cache.values() {
		if reflect.TypeOf(v).AssignableTo(bound) {
			out = append(out, v)
		}
	}
	return out
}

// resolve 解析 ctx.Identifier()。transient 只作用于这一层，依赖总是单例
func (i *injector) resolve(ctx *ResolutionContext, transient bool) (any, error) {
	id := ctx.identifier
	requested := id.Type()

	if err := checkResolvable(requested); err != nil {
		return nil, err
	}
	if err := ctx.chain.check(requested); err != nil {
		return nil, err
	}

	// 带标签的注入点先交给覆盖处理器，结果不进入缓存
	if id.Tagged() {
		v, ok, err := i.override(ctx, id)
		if err != nil || ok {
			return v, err
		}
		// 命名注入点不能退化为同类型的未命名单例
		if tag, named := id.Tag(TagKindName); named {
			return nil, fmt.Errorf("%w: %v[%v]", ErrNotProvided, requested, tag)
		}
	}

	if !transient {
		if v, ok := i.cache.get(NewIdentifier(requested).Key()); ok {
			return v, nil
		}
	}

	t, err := i.substitute(requested)
	if err != nil {
		return nil, err
	}
	if t != requested {
		if err := checkResolvable(t); err != nil {
			return nil, err
		}
		if err := ctx.chain.check(t); err != nil {
			return nil, err
		}
		i.substituted.Store(requested, t)
	}

	if transient {
		return i.construct(ctx, t)
	}

	key := NewIdentifier(t).Key()
	if v, ok := i.cache.get(key); ok {
		i.logger.Trace("命中单例缓存", logging.Field{Key: "type", Value: t})
		return v, nil
	}

	entry := i.cache.entry(key)
	if err := i.cache.lock(entry, ctx.chain, t); err != nil {
		return nil, err
	}
	defer i.cache.unlock(entry)

	// 等待期间可能已被其他请求构造
	if v, ok := i.cache.get(key); ok {
		return v, nil
	}

	v, err := i.construct(ctx, t)
	if err != nil {
		return nil, err
	}
	winner, _ := i.cache.put(key, v)
	return winner, nil
}

// construct 为类型 t 执行覆盖、实例化与后置构造阶段
func (i *injector) construct(ctx *ResolutionContext, t reflect.Type) (any, error) {
	ctx.chain.push(t)
	defer ctx.chain.pop()

	id := ctx.identifier
	if !id.Tagged() {
		v, ok, err := i.override(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			return v, nil
		}
	}

	resolution, err := i.selectInstantiation(ctx, t)
	if err != nil {
		return nil, err
	}

	deps := resolution.Dependencies()
	values := make([]any, len(deps))
	for idx, dep := range deps {
		v, err := i.resolve(ctx.child(dep), false)
		if err != nil {
			return nil, err
		}
		values[idx] = v
	}

	instance, err := resolution.InstantiateWith(values...)
	if err != nil {
		return nil, err
	}

	if resolution.IsInstantiation() {
		for _, h := range i.postConstruct {
			if err := h.PostConstruct(ctx, instance); err != nil {
				return nil, err
			}
		}
	}

	i.logger.Debug("构造实例", logging.Field{Key: "type", Value: t}, logging.Field{Key: "dependencies", Value: len(deps)})
	return instance, nil
}

// substitute 反复执行类型替换直到不动点
func (i *injector) substitute(t reflect.Type) (reflect.Type, error) {
	current := t
	for depth := 0; ; depth++ {
		next, err := i.substituteOnce(current)
		if err != nil {
			return nil, err
		}
		if next == current {
			return current, nil
		}
		if depth >= i.maxDepth {
			return nil, fmt.Errorf("%w: %v (最大深度 %d)", ErrSubstitutionDepth, t, i.maxDepth)
		}
		current = next
	}
}

func (i *injector) substituteOnce(t reflect.Type) (reflect.Type, error) {
	for _, h := range i.preConstruct {
		next, err := h.Accept(t)
		if err != nil {
			return nil, err
		}
		if next == nil || next == t {
			continue
		}
		if !next.AssignableTo(t) {
			return nil, fmt.Errorf("%w: %v 无法替换 %v", ErrInvalidSubstitution, next, t)
		}
		i.logger.Trace("类型替换", logging.Field{Key: "from", Value: t}, logging.Field{Key: "to", Value: next})
		return next, nil
	}
	return t, nil
}

func (i *injector) override(ctx *ResolutionContext, id Identifier) (any, bool, error) {
	for _, h := range i.dependency {
		v, ok, err := h.ResolveValue(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (i *injector) selectInstantiation(ctx *ResolutionContext, t reflect.Type) (Resolution, error) {
	for _, p := range i.instantiation {
		r, err := p.Instantiation(ctx, t)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrNoInstantiation, t)
}

// providedValues 内置覆盖处理器，按标签返回 Provide 绑定的值
type providedValues struct {
	injector *injector
}

func (p providedValues) ResolveValue(_ *ResolutionContext, id Identifier) (any, bool, error) {
	if !id.Tagged() {
		return nil, false, nil
	}

	p.injector.mu.RLock()
	defer p.injector.mu.RUnlock()
	for _, tag := range id.tags {
		for _, v := range p.injector.provided[tag] {
			if reflect.TypeOf(v).AssignableTo(id.Type()) {
				return v, true, nil
			}
		}
	}
	return nil, false, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
