package di

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// IdentifierKey 可比较的标识键，用作 map 键
type IdentifierKey struct {
	Type reflect.Type
	Tags string
}

// Identifier 依赖标识：类型加上一组规范化（排序、去重）的限定标签
//
// 创建后不可变。两个标识相等当且仅当类型与标签集合都相等，声明处标签的顺序无关。
type Identifier struct {
	typ  reflect.Type
	tags []Tag
	key  string
}

// NewIdentifier 创建依赖标识
func NewIdentifier(t reflect.Type, tags ...Tag) Identifier {
	canonical := slices.Clone(tags)
	slices.SortFunc(canonical, func(a, b Tag) int {
		if c := strings.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	canonical = slices.Compact(canonical)

	// 种类与值都带长度前缀，值里的 "," 与 "=" 不会让不同的标签集合得到相同的键
	var key strings.Builder
	for _, tag := range canonical {
		key.WriteString(strconv.Itoa(len(tag.Kind)))
		key.WriteByte(':')
		key.WriteString(tag.Kind)
		key.WriteString(strconv.Itoa(len(tag.Value)))
		key.WriteByte(':')
		key.WriteString(tag.Value)
	}

	return Identifier{
		typ:  t,
		tags: canonical,
		key:  key.String(),
	}
}

// IdentifierFor 创建类型 T 的依赖标识
func IdentifierFor[T any](tags ...Tag) Identifier {
	return NewIdentifier(TypeOf[T](), tags...)
}

// Type 返回请求的类型
func (id Identifier) Type() reflect.Type { return id.typ }

// Tags 返回标签副本
func (id Identifier) Tags() []Tag { return slices.Clone(id.tags) }

// Tagged 是否携带任何标签
func (id Identifier) Tagged() bool { return len(id.tags) > 0 }

// HasTag 是否包含指定种类的标签
func (id Identifier) HasTag(kind string) bool {
	_, ok := id.Tag(kind)
	return ok
}

// Tag 返回第一个指定种类的标签
func (id Identifier) Tag(kind string) (Tag, bool) {
	for _, tag := range id.tags {
		if tag.Kind == kind {
			return tag, true
		}
	}
	return Tag{}, false
}

// Key 返回可比较的键
func (id Identifier) Key() IdentifierKey {
	return IdentifierKey{Type: id.typ, Tags: id.key}
}

// WithType 返回替换了类型、保留标签的新标识
func (id Identifier) WithType(t reflect.Type) Identifier {
	return Identifier{typ: t, tags: id.tags, key: id.key}
}

// Equal 比较类型与标签集合
func (id Identifier) Equal(other Identifier) bool {
	return id.typ == other.typ && id.key == other.key
}

func (id Identifier) String() string {
	if id.typ == nil {
		return "<nil>"
	}
	if len(id.tags) == 0 {
		return id.typ.String()
	}
	parts := make([]string, len(id.tags))
	for i, tag := range id.tags {
		parts[i] = tag.String()
	}
	return id.typ.String() + "[" + strings.Join(parts, ",") + "]"
}
