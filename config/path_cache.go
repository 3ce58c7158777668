package config

import (
	"strings"
	"sync"
)

// PathCache 缓存配置路径的分段结果
type PathCache struct {
	cache sync.Map
}

// GetPathSegments 解析 ":" 或 "." 分隔的路径
func (c *PathCache) GetPathSegments(path string) []string {
	if v, ok := c.cache.Load(path); ok {
		return v.([]string)
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")
	c.cache.Store(path, parts)
	return parts
}
