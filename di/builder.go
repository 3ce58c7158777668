package di

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gocrud/inject/logging"
)

// Builder 组装四个阶段的处理器并创建容器。
//
// 内置处理器的位置固定：依赖覆盖阶段依次为 Provide 的标签值、单例存储视图、
// 用户处理器；实例化阶段为用户策略，标准策略总在最后。
//
// 示例：
//
//	injector, err := di.NewBuilder(di.WithLogger(logger)).
//		AddHandlers(handlers.DefaultHandlers()...).
//		Constructor(NewUserService).
//		Build()
type Builder struct {
	opts          *options
	preConstruct  []PreConstructHandler
	dependency    []DependencyHandler
	instantiation []InstantiationProvider
	postConstruct []PostConstructHandler
	constructors  map[reflect.Type]*constructor
	errs          []error
}

// NewBuilder 创建容器构建器
func NewBuilder(opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Builder{
		opts:         o,
		constructors: make(map[reflect.Type]*constructor),
	}
}

// Apply 追加容器选项
func (b *Builder) Apply(opts ...Option) *Builder {
	for _, opt := range opts {
		opt(b.opts)
	}
	return b
}

// AddPreConstruct 追加类型替换处理器
func (b *Builder) AddPreConstruct(handlers ...PreConstructHandler) *Builder {
	b.preConstruct = append(b.preConstruct, handlers...)
	return b
}

// AddDependencyHandler 追加依赖覆盖处理器
func (b *Builder) AddDependencyHandler(handlers ...DependencyHandler) *Builder {
	b.dependency = append(b.dependency, handlers...)
	return b
}

// AddInstantiation 追加实例化策略
func (b *Builder) AddInstantiation(providers ...InstantiationProvider) *Builder {
	b.instantiation = append(b.instantiation, providers...)
	return b
}

// AddPostConstruct 追加后置构造处理器
func (b *Builder) AddPostConstruct(handlers ...PostConstructHandler) *Builder {
	b.postConstruct = append(b.postConstruct, handlers...)
	return b
}

// AddHandlers 按实现的接口把处理器放入对应阶段，一个处理器可以参与多个阶段
func (b *Builder) AddHandlers(handlers ...any) *Builder {
	for _, h := range handlers {
		matched := false
		if p, ok := h.(PreConstructHandler); ok {
			b.preConstruct = append(b.preConstruct, p)
			matched = true
		}
		if d, ok := h.(DependencyHandler); ok {
			b.dependency = append(b.dependency, d)
			matched = true
		}
		if ip, ok := h.(InstantiationProvider); ok {
			b.instantiation = append(b.instantiation, ip)
			matched = true
		}
		if pc, ok := h.(PostConstructHandler); ok {
			b.postConstruct = append(b.postConstruct, pc)
			matched = true
		}
		if !matched {
			b.errs = append(b.errs, fmt.Errorf("di: %T 没有实现任何处理器接口", h))
		}
	}
	return b
}

// Constructor 为返回类型指定构造函数，参数按类型解析
func (b *Builder) Constructor(fn any) *Builder {
	return b.ConstructorWithTags(fn)
}

// ConstructorWithTags 为返回类型指定构造函数，paramTags[i] 是第 i 个参数的限定标签
func (b *Builder) ConstructorWithTags(fn any, paramTags ...[]Tag) *Builder {
	c, err := newConstructor(fn, paramTags...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if _, exists := b.constructors[c.out]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %v 已有构造函数", ErrInvalidConstructor, c.out))
		return b
	}
	b.constructors[c.out] = c
	return b
}

// Build 创建容器。处理器顺序此后固定
func (b *Builder) Build() (Injector, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	inj := newInjector(b.opts)
	inj.preConstruct = append([]PreConstructHandler(nil), b.preConstruct...)

	inj.dependency = make([]DependencyHandler, 0, len(b.dependency)+2)
	inj.dependency = append(inj.dependency, providedValues{injector: inj}, singletonStoreHandler{})
	inj.dependency = append(inj.dependency, b.dependency...)

	inj.instantiation = make([]InstantiationProvider, 0, len(b.instantiation)+1)
	inj.instantiation = append(inj.instantiation, b.instantiation...)
	inj.instantiation = append(inj.instantiation, newStandardInjectionProvider(b.constructors))

	inj.postConstruct = append([]PostConstructHandler(nil), b.postConstruct...)

	inj.logger.Debug("容器已创建",
		logging.Field{Key: "preConstruct", Value: len(inj.preConstruct)},
		logging.Field{Key: "dependency", Value: len(inj.dependency)},
		logging.Field{Key: "instantiation", Value: len(inj.instantiation)},
		logging.Field{Key: "postConstruct", Value: len(inj.postConstruct)},
	)
	return inj, nil
}

// MustBuild 与 Build 相同，失败时 panic
func (b *Builder) MustBuild() Injector {
	inj, err := b.Build()
	if err != nil {
		panic(err)
	}
	return inj
}

// NewInjector 创建一个只有内置处理器的容器
func NewInjector(opts ...Option) Injector {
	return NewBuilder(opts...).MustBuild()
}
