package di

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	// TagName 结构体字段上声明注入点使用的标签名
	TagName = "di"
	// TagKindName 命名限定的标签种类
	TagKindName = "name"
)

// Tag 限定标签，用于区分同一类型的不同依赖
//
// 标签之间按 Kind 与 Value 比较，Value 为空表示不携带数据的标记。
//
// 示例：
//
//	type Service struct {
//		Primary *sql.DB `di:"primary"`          // Named("primary")
//		Port    int     `di:",config=server.port"` // NewTag("config", "server.port")
//	}
type Tag struct {
	Kind  string
	Value string
}

// Named 创建命名标签
func Named(name string) Tag {
	return Tag{Kind: TagKindName, Value: name}
}

// NewTag 创建任意种类的标签
func NewTag(kind, value string) Tag {
	return Tag{Kind: kind, Value: value}
}

func (t Tag) String() string {
	if t.Value == "" {
		return t.Kind
	}
	return t.Kind + "=" + t.Value
}

// ParseTag 解析 `di:"[name][,kind[=value]]..."` 形式的标签
func ParseTag(tag string) ([]Tag, error) {
	parts := strings.Split(tag, ",")
	var tags []Tag

	if name := strings.TrimSpace(parts[0]); name != "" {
		tags = append(tags, Named(name))
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, value, _ := strings.Cut(part, "=")
		kind = strings.TrimSpace(kind)
		if kind == "" {
			return nil, fmt.Errorf("di: 标签 %q 缺少种类", tag)
		}
		tags = append(tags, NewTag(kind, strings.TrimSpace(value)))
	}
	return tags, nil
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
//
// 示例：
//
//	userServiceType := di.TypeOf[*UserService]()
//	instance, _ := injector.GetSingleton(userServiceType)
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
