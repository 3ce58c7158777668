package etcd

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/inject/configure/internal/named"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdClientOptions etcd 客户端配置选项
type EtcdClientOptions struct {
	Name               string        `json:"-"`
	Endpoints          []string      `json:"endpoints"`
	DialTimeout        time.Duration `json:"dialTimeout"`
	Username           string        `json:"username"`
	Password           string        `json:"password"`
	AutoSyncInterval   time.Duration `json:"autoSyncInterval"`
	MaxCallSendMsgSize int           `json:"maxCallSendMsgSize"`
	MaxCallRecvMsgSize int           `json:"maxCallRecvMsgSize"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *EtcdClientOptions {
	return &EtcdClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *EtcdClientOptions) Validate() error {
	if o.Name == "" {
		return errors.New("客户端名称不能为空")
	}
	if len(o.Endpoints) == 0 {
		return errors.New("endpoints 不能为空")
	}
	if o.DialTimeout <= 0 {
		return errors.New("连接超时必须为正数")
	}
	return nil
}

func (o *EtcdClientOptions) clientConfig() clientv3.Config {
	return clientv3.Config{
		Endpoints:          o.Endpoints,
		DialTimeout:        o.DialTimeout,
		Username:           o.Username,
		Password:           o.Password,
		AutoSyncInterval:   o.AutoSyncInterval,
		MaxCallSendMsgSize: o.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: o.MaxCallRecvMsgSize,
	}
}

// EtcdClientFactory etcd 客户端工厂
type EtcdClientFactory struct {
	clients *named.Registry[*clientv3.Client]
}

// NewEtcdClientFactory 创建客户端工厂
func NewEtcdClientFactory() *EtcdClientFactory {
	return &EtcdClientFactory{clients: named.New[*clientv3.Client]("etcd 客户端")}
}

// Register 创建客户端。未配置用户名时不会等待连接建立
func (f *EtcdClientFactory) Register(opts EtcdClientOptions) (*clientv3.Client, error) {
	if f.clients.Has(opts.Name) {
		return nil, fmt.Errorf("etcd 客户端 %q 已注册", opts.Name)
	}
	client, err := clientv3.New(opts.clientConfig())
	if err != nil {
		return nil, fmt.Errorf("创建 etcd 客户端 %q 失败: %w", opts.Name, err)
	}
	if err := f.clients.Add(opts.Name, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Get 获取指定名称的客户端
func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	return f.clients.Get(name)
}

// Names 按注册顺序返回客户端名称
func (f *EtcdClientFactory) Names() []string {
	return f.clients.Names()
}

// Close 关闭所有客户端
func (f *EtcdClientFactory) Close() error {
	return f.clients.CloseAll((*clientv3.Client).Close)
}
