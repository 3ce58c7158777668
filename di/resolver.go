package di

import (
	"fmt"
	"reflect"
	"sync"
)

// StandardInjectionProvider 默认的实例化策略，始终排在最后。
//
// 使用通过 Builder.Constructor 指定的构造函数，否则为结构体或结构体指针分配零值；
// 随后按声明顺序注入带 `di` 标签的导出字段。无法构造的类型（接口、函数、
// 没有构造函数的基础类型）返回 nil 表示不处理。
type StandardInjectionProvider struct {
	constructors map[reflect.Type]*constructor
	descriptors  sync.Map // reflect.Type -> describeResult
}

type describeResult struct {
	d   *descriptor
	err error
}

func newStandardInjectionProvider(ctors map[reflect.Type]*constructor) *StandardInjectionProvider {
	return &StandardInjectionProvider{constructors: ctors}
}

func (p *StandardInjectionProvider) describe(t reflect.Type) (*descriptor, error) {
	if cached, ok := p.descriptors.Load(t); ok {
		r := cached.(describeResult)
		return r.d, r.err
	}
	d, err := newDescriptor(t, p.constructors[t])
	p.descriptors.Store(t, describeResult{d: d, err: err})
	return d, err
}

// Instantiation 实现 InstantiationProvider
func (p *StandardInjectionProvider) Instantiation(_ *ResolutionContext, t reflect.Type) (Resolution, error) {
	d, err := p.describe(t)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return &standardInjection{d: d}, nil
}

// standardInjection 先调用构造函数，再按顺序赋值字段
type standardInjection struct {
	d *descriptor
}

func (s *standardInjection) Dependencies() []Identifier { return s.d.dependencies }

func (s *standardInjection) IsInstantiation() bool { return true }

func (s *standardInjection) InstantiateWith(values ...any) (any, error) {
	d := s.d
	if len(values) != len(d.dependencies) {
		return nil, fmt.Errorf("%w: %v 期望 %d 个，得到 %d 个", ErrValueCountMismatch, d.typ, len(d.dependencies), len(values))
	}

	var instance reflect.Value
	n := 0
	if d.constructor != nil {
		n = len(d.constructor.params)
		out, err := d.constructor.invoke(values[:n])
		if err != nil {
			return nil, err
		}
		instance = out
	} else if d.typ.Kind() == reflect.Pointer {
		instance = reflect.New(d.typ.Elem())
	} else {
		instance = reflect.New(d.typ).Elem()
	}

	if len(d.fields) == 0 {
		return instance.Interface(), nil
	}

	target := instance
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	} else if !target.CanAddr() {
		// 构造函数返回的结构体值不可寻址
		addressable := reflect.New(d.typ).Elem()
		addressable.Set(instance)
		instance, target = addressable, addressable
	}

	for i, field := range d.fields {
		v, err := valueFor(values[n+i], field.Identifier.Type())
		if err != nil {
			return nil, fmt.Errorf("di: %v 的字段 %s: %w", d.typ, field.Name, err)
		}
		target.Field(field.Index).Set(v)
	}
	return instance.Interface(), nil
}
