package config

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/gocrud/inject/di"
	"gopkg.in/yaml.v3"
)

// TagKindConfig 标签类型。`di:",config=server:port"` 注入对应路径的配置值
const TagKindConfig = "config"

// ValueHandler 依赖覆盖处理器，为带 config 标签的注入点提供配置值，
// 值会转换为注入点声明的类型
type ValueHandler struct {
	config Configuration
}

// NewValueHandler 基于配置创建处理器
func NewValueHandler(config Configuration) *ValueHandler {
	return &ValueHandler{config: config}
}

// ResolveValue 实现 di.DependencyHandler
func (h *ValueHandler) ResolveValue(_ *di.ResolutionContext, id di.Identifier) (any, bool, error) {
	tag, ok := id.Tag(TagKindConfig)
	if !ok {
		return nil, false, nil
	}
	if tag.Value == "" {
		return nil, false, fmt.Errorf("config: %v 的 config 标签缺少路径", id)
	}

	raw, ok := h.config.Lookup(tag.Value)
	if !ok || raw == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrKeyNotFound, tag.Value)
	}

	v, err := convertValue(raw, id.Type())
	if err != nil {
		return nil, false, fmt.Errorf("config: %s 无法转换为 %v: %w", tag.Value, id.Type(), err)
	}
	return v, true, nil
}

var configurationType = di.TypeOf[Configuration]()

// convertValue 把原始配置值转换为类型 t 的值
func convertValue(raw any, t reflect.Type) (any, error) {
	if t == configurationType {
		if m, ok := raw.(map[string]any); ok {
			return NewInMemory(m), nil
		}
	}

	rv := reflect.ValueOf(raw)
	if rv.Type() == t {
		return raw, nil
	}

	target := reflect.New(t)
	if s, ok := raw.(string); ok && t.Kind() != reflect.String {
		// 字符串交给 YAML 解析，可以得到数字、布尔值与 time.Duration
		if err := yaml.Unmarshal([]byte(s), target.Interface()); err != nil {
			return nil, err
		}
		return target.Elem().Interface(), nil
	}

	if isScalar(rv.Kind()) {
		if t.Kind() == reflect.String {
			return reflect.ValueOf(fmt.Sprint(raw)).Convert(t).Interface(), nil
		}
		if isScalar(t.Kind()) && rv.Type().ConvertibleTo(t) {
			return convertNumber(rv, t)
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}

// convertNumber 在数值类型之间转换，截断小数、溢出或负数转无符号时报错
func convertNumber(rv reflect.Value, t reflect.Type) (any, error) {
	out := reflect.New(t).Elem()
	switch {
	case isInt(t.Kind()):
		var n int64
		switch {
		case isInt(rv.Kind()):
			n = rv.Int()
		case isUint(rv.Kind()):
			if rv.Uint() > math.MaxInt64 {
				return nil, fmt.Errorf("config: %v 超出 %v 的范围", rv.Interface(), t)
			}
			n = int64(rv.Uint())
		case isFloat(rv.Kind()):
			f := rv.Float()
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("config: %v 不是整数，不能转换为 %v", f, t)
			}
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, fmt.Errorf("config: %v 超出 %v 的范围", f, t)
			}
			n = int64(f)
		default:
			return rv.Convert(t).Interface(), nil
		}
		if out.OverflowInt(n) {
			return nil, fmt.Errorf("config: %d 超出 %v 的范围", n, t)
		}
		out.SetInt(n)
	case isUint(t.Kind()):
		var n uint64
		switch {
		case isInt(rv.Kind()):
			if rv.Int() < 0 {
				return nil, fmt.Errorf("config: 负数 %d 不能转换为 %v", rv.Int(), t)
			}
			n = uint64(rv.Int())
		case isUint(rv.Kind()):
			n = rv.Uint()
		case isFloat(rv.Kind()):
			f := rv.Float()
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("config: %v 不是整数，不能转换为 %v", f, t)
			}
			if f < 0 || f >= math.MaxUint64 {
				return nil, fmt.Errorf("config: %v 超出 %v 的范围", f, t)
			}
			n = uint64(f)
		default:
			return rv.Convert(t).Interface(), nil
		}
		if out.OverflowUint(n) {
			return nil, fmt.Errorf("config: %d 超出 %v 的范围", n, t)
		}
		out.SetUint(n)
	case isFloat(t.Kind()):
		f := rv.Convert(reflect.TypeOf(float64(0))).Float()
		if !math.IsInf(f, 0) && out.OverflowFloat(f) {
			return nil, fmt.Errorf("config: %v 超出 %v 的范围", f, t)
		}
		out.SetFloat(f)
	default:
		return rv.Convert(t).Interface(), nil
	}
	return out.Interface(), nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
