package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// JsonFileSource JSON 文件配置源
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := readSourceFile(s.Path, s.Optional)
	if err != nil || data == nil {
		return map[string]any{}, err
	}

	result := make(map[string]any)
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return result, nil
}

// YamlFileSource YAML 文件配置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := readSourceFile(s.Path, s.Optional)
	if err != nil || data == nil {
		return map[string]any{}, err
	}

	result := make(map[string]any)
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	return result, nil
}

// readSourceFile 可选文件不存在时返回 nil, nil
func readSourceFile(path string, optional bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// EnvironmentVariableSource 环境变量配置源。
// 去掉前缀后转为小写，"__" 表示层级，例如 APP_DATABASE__DSN 对应 database:dsn
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("EnvironmentVariables(%s)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if s.Prefix != "" {
			if !strings.HasPrefix(key, s.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.Prefix)
		}
		if key == "" {
			continue
		}

		key = strings.ReplaceAll(strings.ToLower(key), "__", ":")
		setNestedValue(result, key, parseScalar(value))
	}
	return result, nil
}

// InMemorySource 内存配置源
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string {
	return "InMemory"
}

func (s *InMemorySource) Load() (map[string]any, error) {
	result := make(map[string]any)
	mergeMaps(result, s.Data)
	return result, nil
}

// EtcdOptions etcd 配置源选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

func (o EtcdOptions) withDefaults() EtcdOptions {
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Second
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 5 * time.Second
	}
	return o
}

// EtcdSource etcd 配置源，读取前缀下的全部键。
// 键中的 "/" 表示层级，值依次尝试按 JSON、YAML 解析，都失败时作为字符串
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	opts := s.Options.withDefaults()
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   opts.Endpoints,
		Username:    opts.Username,
		Password:    opts.Password,
		DialTimeout: opts.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 etcd 客户端失败: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("读取 etcd 配置失败: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		setEtcdValue(result, opts.Prefix, string(kv.Key), kv.Value)
	}
	return result, nil
}

func setEtcdValue(result map[string]any, prefix, key string, raw []byte) {
	key = strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/")
	if key == "" {
		return
	}
	key = strings.ReplaceAll(key, "/", ":")

	var value any
	if err := json.Unmarshal(raw, &value); err == nil {
		setNestedValue(result, key, value)
		return
	}
	if err := yaml.Unmarshal(raw, &value); err == nil && value != nil {
		setNestedValue(result, key, value)
		return
	}
	setNestedValue(result, key, string(raw))
}

// setNestedValue 按 ":" 分隔的路径写入值，路径上已有非 map 的值时放弃
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, exists := current[part]
		if !exists {
			next = make(map[string]any)
			current[part] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			return
		}
		current = m
	}

	last := parts[len(parts)-1]
	if m, ok := value.(map[string]any); ok {
		if existing, ok := current[last].(map[string]any); ok {
			mergeMaps(existing, m)
			return
		}
	}
	current[last] = value
}

// parseScalar 把环境变量的字符串值转换为整数、浮点数或布尔值
func parseScalar(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
