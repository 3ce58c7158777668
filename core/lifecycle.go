package core

import (
	"context"
	"errors"
	"sync"

	"github.com/gocrud/inject/logging"
)

// LifecycleEvents 应用启动与停止钩子
type LifecycleEvents struct {
	mu      sync.Mutex
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

// NewLifecycle 创建新的生命周期管理器
func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{}
}

// OnStart 注册启动钩子，在托管服务启动前按注册顺序执行
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子，在托管服务停止后按注册的逆序执行
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStop = append(l.onStop, fn)
}

// Start 执行启动钩子，遇到错误立即返回
func (l *LifecycleEvents) Start(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]func(context.Context) error(nil), l.onStart...)
	l.mu.Unlock()

	for _, fn := range hooks {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 执行全部停止钩子，单个失败不影响其他钩子
func (l *LifecycleEvents) Stop(ctx context.Context, logger logging.Logger) error {
	l.mu.Lock()
	hooks := append([]func(context.Context) error(nil), l.onStop...)
	l.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			logger.Error("停止钩子执行失败", logging.Field{Key: "error", Value: err})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
