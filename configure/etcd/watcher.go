package etcd

import (
	"context"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// ConfigWatcher 监听 etcd 前缀，发生变化时重新加载应用配置
type ConfigWatcher struct {
	*hosting.BackgroundService
	client *clientv3.Client
	prefix string
	config config.Reloadable
	logger logging.Logger
}

// NewConfigWatcher 创建配置监听服务
func NewConfigWatcher(client *clientv3.Client, prefix string, cfg config.Reloadable, logger logging.Logger) *ConfigWatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ConfigWatcher{
		BackgroundService: hosting.NewBackgroundService("etcd-config-watcher", logger),
		client:            client,
		prefix:            prefix,
		config:            cfg,
		logger:            logger,
	}
}

// Start 监听直到停止或上下文取消
func (w *ConfigWatcher) Start(ctx context.Context) error {
	defer w.Done()

	watchCtx, cancel := context.WithCancel(clientv3.WithRequireLeader(ctx))
	defer cancel()
	// 连接建立前 Watch 会阻塞，停止信号需要能取消它
	go func() {
		select {
		case <-w.StopChan():
			cancel()
		case <-watchCtx.Done():
		}
	}()
	events := w.client.Watch(watchCtx, w.prefix, clientv3.WithPrefix())

	w.logger.Info("开始监听配置", logging.Field{Key: "prefix", Value: w.prefix})
	for {
		select {
		case <-w.StopChan():
			return nil
		case <-ctx.Done():
			return nil
		case resp, ok := <-events:
			if !ok {
				return nil
			}
			w.handle(resp.Err(), len(resp.Events))
		}
	}
}

func (w *ConfigWatcher) handle(err error, changes int) {
	if err != nil {
		w.logger.Warn("配置监听出错", logging.Field{Key: "error", Value: err})
		return
	}
	if changes == 0 {
		return
	}
	if err := w.config.Reload(); err != nil {
		w.logger.Error("重新加载配置失败", logging.Field{Key: "error", Value: err})
		return
	}
	w.logger.Info("配置已重新加载", logging.Field{Key: "changes", Value: changes})
}
