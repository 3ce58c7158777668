// Package named 按名称保存客户端，保留注册顺序。
package named

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry 命名客户端集合
type Registry[C any] struct {
	kind    string
	mu      sync.RWMutex
	clients map[string]C
	names   []string
}

// New 创建集合，kind 用于错误信息，例如 "redis 客户端"
func New[C any](kind string) *Registry[C] {
	return &Registry[C]{kind: kind, clients: make(map[string]C)}
}

// Add 保存客户端，名称重复时返回错误
func (r *Registry[C]) Add(name string, client C) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[name]; exists {
		return fmt.Errorf("%s %q 已注册", r.kind, name)
	}
	r.clients[name] = client
	r.names = append(r.names, name)
	return nil
}

// Has 判断名称是否已注册
func (r *Registry[C]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// Get 获取指定名称的客户端
func (r *Registry[C]) Get(name string) (C, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	if !ok {
		var zero C
		return zero, fmt.Errorf("%s %q 不存在", r.kind, name)
	}
	return c, nil
}

// Names 按注册顺序返回所有名称
func (r *Registry[C]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Each 按注册顺序遍历
func (r *Registry[C]) Each(fn func(name string, client C)) {
	for _, name := range r.Names() {
		c, err := r.Get(name)
		if err == nil {
			fn(name, c)
		}
	}
}

// CloseAll 逆序关闭并清空所有客户端
func (r *Registry[C]) CloseAll(closeFn func(C) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.names) - 1; i >= 0; i-- {
		name := r.names[i]
		if err := closeFn(r.clients[name]); err != nil {
			errs = append(errs, fmt.Errorf("关闭%s %q 失败: %w", r.kind, name, err))
		}
	}
	r.clients = make(map[string]C)
	r.names = nil
	return errors.Join(errs...)
}
