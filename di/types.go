package di

import (
	"fmt"
	"reflect"
)

// Parameterized 由携带单个泛型参数的容器类型实现，例如 SingletonStore[P]
type Parameterized interface {
	TypeParam() reflect.Type
}

var parameterizedType = TypeOf[Parameterized]()

// typeParamOf 返回 t 的泛型参数。ok 为 false 表示 t 不是参数化类型
func typeParamOf(t reflect.Type) (param reflect.Type, ok bool) {
	if t == nil || !t.Implements(parameterizedType) {
		return nil, false
	}
	// 只声明了 TypeParam 的接口无法得知具体参数
	if t.Kind() == reflect.Interface {
		return nil, true
	}

	var sample reflect.Value
	if t.Kind() == reflect.Pointer {
		sample = reflect.New(t.Elem())
	} else {
		sample = reflect.Zero(t)
	}
	return sample.Interface().(Parameterized).TypeParam(), true
}

// checkResolvable 参数化类型必须能确定具体的泛型参数
func checkResolvable(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("%w: 请求类型为 nil", ErrNoInstantiation)
	}
	param, ok := typeParamOf(t)
	if ok && param == nil {
		if t.Implements(anyStoreType) {
			return fmt.Errorf("%w: %v: 单例存储字段必须声明具体的泛型类型", ErrUnresolvedGeneric, t)
		}
		return fmt.Errorf("%w: %v", ErrUnresolvedGeneric, t)
	}
	return nil
}
