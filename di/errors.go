package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrCyclicDependency 依赖图中存在环
	ErrCyclicDependency = errors.New("di: 检测到循环依赖")
	// ErrUnresolvedGeneric 参数化类型缺少具体的类型参数
	ErrUnresolvedGeneric = errors.New("di: 泛型参数未确定")
	// ErrNoInstantiation 没有任何实例化策略接受该类型
	ErrNoInstantiation = errors.New("di: 没有可用的实例化策略")
	// ErrTypeBound 查询类型超出了单例存储的上界
	ErrTypeBound = errors.New("di: 类型超出上界")
	// ErrDuplicateSingleton 同一类型重复注册单例
	ErrDuplicateSingleton = errors.New("di: 单例已注册")
	// ErrValueCountMismatch 实例化计划收到的值数量与依赖数量不一致
	ErrValueCountMismatch = errors.New("di: 依赖值数量不匹配")
	// ErrNotAssignable 实例无法赋值给目标类型
	ErrNotAssignable = errors.New("di: 实例类型不匹配")
	// ErrSubstitutionDepth 类型替换链超过最大深度
	ErrSubstitutionDepth = errors.New("di: 类型替换超过最大深度")
	// ErrInvalidSubstitution 替换类型无法赋值给原请求类型
	ErrInvalidSubstitution = errors.New("di: 非法的类型替换")
	// ErrNotProvided 限定标签没有对应的值
	ErrNotProvided = errors.New("di: 未找到标签对应的值")
	// ErrInvalidConstructor 构造函数签名不合法
	ErrInvalidConstructor = errors.New("di: 非法的构造函数")
)

// CycleError 描述一次循环依赖，Chain 为从最外层请求到重复类型的完整路径
type CycleError struct {
	Chain []reflect.Type
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Chain))
	for i, t := range e.Chain {
		names[i] = t.String()
	}
	return fmt.Sprintf("%v: %s", ErrCyclicDependency, strings.Join(names, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

// BoundError 单例存储收到超出上界的类型
type BoundError struct {
	Type  reflect.Type
	Bound reflect.Type
}

func (e *BoundError) Error() string {
	return fmt.Sprintf("di: %v 不是 %v 的子类型", e.Type, e.Bound)
}

func (e *BoundError) Unwrap() error { return ErrTypeBound }
