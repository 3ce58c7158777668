package di

import (
	"fmt"
	"reflect"
)

var errorType = TypeOf[error]()

// constructor 指定的构造函数，签名为 func(...) T 或 func(...) (T, error)
type constructor struct {
	fn           reflect.Value
	out          reflect.Type
	params       []Identifier
	returnsError bool
}

// newConstructor 校验构造函数签名。paramTags 按参数顺序给出各参数的限定标签
func newConstructor(fn any, paramTags ...[]Tag) (*constructor, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidConstructor)
	}
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: 期望函数，得到 %v", ErrInvalidConstructor, fnType)
	}
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("%w: 不支持可变参数 %v", ErrInvalidConstructor, fnType)
	}

	c := &constructor{fn: fnVal}
	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("%w: %v 的第二个返回值必须是 error", ErrInvalidConstructor, fnType)
		}
		c.returnsError = true
	default:
		return nil, fmt.Errorf("%w: %v 必须返回 T 或 (T, error)", ErrInvalidConstructor, fnType)
	}
	c.out = fnType.Out(0)

	if len(paramTags) > fnType.NumIn() {
		return nil, fmt.Errorf("%w: %v 只有 %d 个参数，得到 %d 组标签", ErrInvalidConstructor, fnType, fnType.NumIn(), len(paramTags))
	}
	for i := 0; i < fnType.NumIn(); i++ {
		var tags []Tag
		if i < len(paramTags) {
			tags = paramTags[i]
		}
		c.params = append(c.params, NewIdentifier(fnType.In(i), tags...))
	}
	return c, nil
}

// invoke 调用构造函数，检查 error 与 nil 返回值
func (c *constructor) invoke(args []any) (reflect.Value, error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, err := valueFor(arg, c.params[i].Type())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("di: 构造函数 %v 的参数 %d: %w", c.fn.Type(), i, err)
		}
		in[i] = v
	}

	results := c.fn.Call(in)
	if c.returnsError && !results[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("di: 构造 %v 失败: %w", c.out, results[1].Interface().(error))
	}

	out := results[0]
	switch out.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if out.IsNil() {
			return reflect.Value{}, fmt.Errorf("di: 构造函数 %v 返回了 nil", c.fn.Type())
		}
	}
	return out, nil
}

// valueFor 把解析得到的值转换为可以赋给 t 的 reflect.Value，nil 对应零值
func valueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: %T 无法赋值给 %v", ErrNotAssignable, v, t)
	}
	return rv, nil
}
