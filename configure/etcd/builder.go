package etcd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/logging"
)

// Builder etcd 客户端配置构建器
type Builder struct {
	ctx     *core.BuildContext
	configs []EtcdClientOptions
	watches []watchConfig
	errs    []error
}

type watchConfig struct {
	client string
	prefix string
}

// NewBuilder 创建 etcd 构建器，ctx 可以为 nil
func NewBuilder(ctx *core.BuildContext) *Builder {
	return &Builder{ctx: ctx}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	for _, c := range b.configs {
		if c.Name == name {
			b.errs = append(b.errs, fmt.Errorf("etcd 客户端 %q 重复配置", name))
			return b
		}
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("etcd 客户端 %q 配置无效: %w", name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// WatchConfig 使用指定客户端监听 prefix，有变化时重新加载应用配置
func (b *Builder) WatchConfig(client, prefix string) *Builder {
	if strings.TrimSpace(prefix) == "" {
		b.errs = append(b.errs, fmt.Errorf("etcd 客户端 %q: 监听前缀不能为空", client))
		return b
	}
	b.watches = append(b.watches, watchConfig{client: client, prefix: prefix})
	return b
}

// Build 构建 etcd 客户端工厂，没有任何配置时返回 nil
func (b *Builder) Build(logger logging.Logger) (*EtcdClientFactory, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if len(b.configs) == 0 {
		if len(b.watches) > 0 {
			return nil, errors.New("配置监听需要至少一个 etcd 客户端")
		}
		return nil, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	factory := NewEtcdClientFactory()
	for _, opts := range b.configs {
		if _, err := factory.Register(opts); err != nil {
			_ = factory.Close()
			return nil, err
		}
		logger.Info("etcd 客户端已注册",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "endpoints", Value: strings.Join(opts.Endpoints, ",")})
	}
	return factory, nil
}
