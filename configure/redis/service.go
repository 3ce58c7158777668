package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/inject/configure/internal/named"
	"github.com/redis/go-redis/v9"
)

// RedisClientOptions Redis 客户端配置选项
type RedisClientOptions struct {
	Name         string        `json:"-"`
	Addr         string        `json:"addr"`
	Username     string        `json:"username"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	DialTimeout  time.Duration `json:"dialTimeout"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
	PoolSize     int           `json:"poolSize"`
	MinIdleConns int           `json:"minIdleConns"`
	MaxRetries   int           `json:"maxRetries"`

	// PingOnStart 为 true 时应用启动阶段会检查连接
	PingOnStart bool `json:"pingOnStart"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *RedisClientOptions {
	return &RedisClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

// Validate 验证配置
func (o *RedisClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("客户端名称不能为空")
	case o.Addr == "":
		return errors.New("地址不能为空")
	case o.DB < 0:
		return errors.New("数据库编号不能为负数")
	case o.DialTimeout <= 0:
		return errors.New("连接超时必须为正数")
	}
	return nil
}

func (o *RedisClientOptions) redisOptions() *redis.Options {
	return &redis.Options{
		Addr:         o.Addr,
		Username:     o.Username,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		MaxRetries:   o.MaxRetries,
	}
}

// RedisClientFactory 按名称管理 Redis 客户端。客户端在首次使用时才建立连接
type RedisClientFactory struct {
	clients *named.Registry[*redis.Client]
	options *named.Registry[RedisClientOptions]
}

// NewRedisClientFactory 创建客户端工厂
func NewRedisClientFactory() *RedisClientFactory {
	return &RedisClientFactory{
		clients: named.New[*redis.Client]("redis 客户端"),
		options: named.New[RedisClientOptions]("redis 配置"),
	}
}

// Register 创建并保存客户端
func (f *RedisClientFactory) Register(opts RedisClientOptions) (*redis.Client, error) {
	if f.clients.Has(opts.Name) {
		return nil, fmt.Errorf("redis 客户端 %q 已注册", opts.Name)
	}
	client := redis.NewClient(opts.redisOptions())
	if err := f.clients.Add(opts.Name, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	_ = f.options.Add(opts.Name, opts)
	return client, nil
}

// Get 获取指定名称的 Redis 客户端
func (f *RedisClientFactory) Get(name string) (*redis.Client, error) {
	return f.clients.Get(name)
}

// Names 按注册顺序返回客户端名称
func (f *RedisClientFactory) Names() []string {
	return f.clients.Names()
}

// Ping 检查所有设置了 PingOnStart 的客户端
func (f *RedisClientFactory) Ping(ctx context.Context) error {
	var errs []error
	f.clients.Each(func(name string, client *redis.Client) {
		opts, err := f.options.Get(name)
		if err != nil || !opts.PingOnStart {
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis 客户端 %q 连接失败: %w", name, err))
		}
	})
	return errors.Join(errs...)
}

// Close 关闭所有 Redis 客户端
func (f *RedisClientFactory) Close() error {
	return f.clients.CloseAll((*redis.Client).Close)
}
