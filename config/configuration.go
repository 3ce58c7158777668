// Package config 提供分层配置：多个配置源按顺序合并，后加入的覆盖先加入的。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrKeyNotFound 配置路径不存在
var ErrKeyNotFound = errors.New("config: 配置项不存在")

// Configuration 配置接口。路径使用 ":" 或 "." 分隔，例如 "database:default:dsn"
type Configuration interface {
	// Get 获取配置值的字符串形式，不存在时返回空字符串
	Get(key string) string
	// GetWithDefault 获取配置值，如果不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// Lookup 获取原始配置值
	Lookup(key string) (any, bool)
	// GetSection 获取配置节，不存在时返回空配置
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体，key 为空时绑定全部
	Bind(key string, target any) error
	// GetAll 获取所有配置的副本
	GetAll() map[string]any
}

// Reloadable 可以重新读取全部配置源的配置
type Reloadable interface {
	Reload() error
	OnReload(fn func())
}

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 配置构建器
type ConfigurationBuilder struct {
	sources []ConfigurationSource
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	return b.Add(&EtcdSource{Options: opts.withDefaults()})
}

// Build 按顺序加载所有配置源
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	c, err := b.BuildReloadable()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// BuildReloadable 与 Build 相同，返回的配置支持 Reload
func (b *ConfigurationBuilder) BuildReloadable() (*ReloadableConfiguration, error) {
	b.mu.RLock()
	sources := append([]ConfigurationSource(nil), b.sources...)
	b.mu.RUnlock()

	c := &ReloadableConfiguration{
		configuration: configuration{store: NewValueStore(), paths: &PathCache{}},
		sources:       sources,
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewInMemory 直接由数据创建配置，常用于测试
func NewInMemory(data map[string]any) Configuration {
	c := &configuration{store: NewValueStore(), paths: &PathCache{}}
	copied := make(map[string]any)
	mergeMaps(copied, data)
	c.store.Store(copied)
	return c
}

// configuration 只读配置视图，数据快照保存在 ValueStore 中
type configuration struct {
	store *ValueStore
	paths *PathCache
}

// ReloadableConfiguration 由配置源构建的配置
type ReloadableConfiguration struct {
	configuration

	sources   []ConfigurationSource
	mu        sync.Mutex
	listeners []func()
}

// Reload 重新加载所有配置源并原子替换数据，失败时保留旧数据
func (c *ReloadableConfiguration) Reload() error {
	data := make(map[string]any)
	for _, source := range c.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("config: 加载配置源 %s 失败: %w", source.Name(), err)
		}
		mergeMaps(data, loaded)
	}
	c.store.Store(data)

	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnReload 注册重新加载后的回调
func (c *ReloadableConfiguration) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *configuration) Get(key string) string {
	value, ok := c.Lookup(key)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	value, ok := c.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: %s 的值 %v 无法转换为整数", key, value)
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	value, ok := c.Lookup(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: %s 的值 %v 无法转换为布尔值", key, value)
	}
}

func (c *configuration) Lookup(key string) (any, bool) {
	current := any(c.store.Load())
	if key == "" {
		return current, true
	}
	for _, part := range c.paths.GetPathSegments(key) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

func (c *configuration) GetSection(key string) Configuration {
	section := make(map[string]any)
	if value, ok := c.Lookup(key); ok {
		if m, ok := value.(map[string]any); ok {
			mergeMaps(section, m)
		}
	}
	s := &configuration{store: NewValueStore(), paths: c.paths}
	s.store.Store(section)
	return s
}

// Bind 通过 JSON 序列化把配置节写入 target
func (c *configuration) Bind(key string, target any) error {
	data, ok := c.Lookup(key)
	if !ok || data == nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: 序列化 %s 失败: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: 绑定 %s 失败: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.store.Load())
	return result
}

// mergeMaps 把 src 深度合并进 dst，嵌套的 map 会被复制
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		if !srcIsMap {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any)
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}
