package di

import (
	"fmt"
	"reflect"
)

// FieldInjection 需要注入的结构体字段
type FieldInjection struct {
	Index      int
	Name       string
	Identifier Identifier
}

// descriptor 可构造类型的依赖描述表，每个类型只构建一次
type descriptor struct {
	typ          reflect.Type
	constructor  *constructor
	fields       []FieldInjection
	dependencies []Identifier
}

// structType 返回 t 对应的结构体类型（t 为结构体或结构体指针）
func structType(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, t.Kind() == reflect.Struct
}

// newDescriptor 分析构造函数参数与带 `di` 标签的字段。
// 返回 nil 表示该类型既没有构造函数也不是结构体，无法由标准策略构造。
func newDescriptor(t reflect.Type, ctor *constructor) (*descriptor, error) {
	st, isStruct := structType(t)
	if ctor == nil && !isStruct {
		return nil, nil
	}

	d := &descriptor{typ: t, constructor: ctor}
	if ctor != nil {
		d.dependencies = append(d.dependencies, ctor.params...)
	}

	// 构造函数返回接口或非结构体时只注入参数
	if !isStruct || (ctor != nil && ctor.out != t) {
		return d, nil
	}

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		tagValue, ok := field.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("di: %v 的字段 %s 未导出，无法注入", t, field.Name)
		}
		tags, err := ParseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("di: %v 的字段 %s: %w", t, field.Name, err)
		}

		id := NewIdentifier(field.Type, tags...)
		d.fields = append(d.fields, FieldInjection{
			Index:      i,
			Name:       field.Name,
			Identifier: id,
		})
		d.dependencies = append(d.dependencies, id)
	}
	return d, nil
}
