package di

import (
	"fmt"
	"reflect"
)

// Register 将 instance 注册为 T 的单例
func Register[T any](inj Injector, instance T) error {
	return inj.Register(TypeOf[T](), instance)
}

// Get 获取（必要时构造）T 的单例
func Get[T any](inj Injector) (T, error) {
	v, err := inj.GetSingleton(TypeOf[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](v)
}

// GetNamed 获取通过 Provide(Named(name), ...) 绑定的值
func GetNamed[T any](inj Injector, name string) (T, error) {
	return GetTagged[T](inj, Named(name))
}

// GetTagged 按类型与标签解析
func GetTagged[T any](inj Injector, tags ...Tag) (T, error) {
	v, err := inj.Resolve(NewIdentifier(TypeOf[T](), tags...))
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](v)
}

// MustGet 与 Get 相同，失败时 panic
func MustGet[T any](inj Injector) T {
	v, err := Get[T](inj)
	if err != nil {
		panic(err)
	}
	return v
}

// New 构造 T 的新实例（顶层临时作用域）
func New[T any](inj Injector) (T, error) {
	v, err := inj.NewInstance(TypeOf[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](v)
}

// IfAvailable 只从缓存获取 T，不会触发构造
func IfAvailable[T any](inj Injector) (T, bool) {
	var zero T
	v, ok := inj.GetIfAvailable(TypeOf[T]())
	if !ok {
		return zero, false
	}
	t, err := cast[T](v)
	return t, err == nil
}

// RetrieveAll 返回缓存中所有可以赋值给 T 的实例
func RetrieveAll[T any](inj Injector) []T {
	values := inj.RetrieveAllOfType(TypeOf[T]())
	out := make([]T, 0, len(values))
	for _, v := range values {
		out = append(out, v.(T))
	}
	return out
}

// Inject 解析 target 指向的类型并写入 target
//
//	var svc *UserService
//	err := di.Inject(injector, &svc)
func Inject(inj Injector, target any, tags ...Tag) error {
	targetVal := reflect.ValueOf(target)
	if targetVal.Kind() != reflect.Pointer {
		return fmt.Errorf("di: Inject 的目标必须是指针，得到 %T", target)
	}
	if targetVal.IsNil() {
		return fmt.Errorf("di: Inject 的目标指针为 nil")
	}

	elem := targetVal.Elem()
	v, err := inj.Resolve(NewIdentifier(elem.Type(), tags...))
	if err != nil {
		return err
	}
	rv, err := valueFor(v, elem.Type())
	if err != nil {
		return err
	}
	elem.Set(rv)
	return nil
}

func cast[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		return t, fmt.Errorf("di: resolved value is %T, expected %v", v, TypeOf[T]())
	}
	return t, nil
}
