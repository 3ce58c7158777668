// Package hosting 管理应用中长时间运行的托管服务。
package hosting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gocrud/inject/logging"
)

// HostedService 托管服务接口
//
// Start 在独立的 goroutine 中调用，允许阻塞到 ctx 取消；
// Stop 在应用关闭时按注册的逆序调用，需要遵守 ctx 的超时。
type HostedService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// HostedServiceManager 托管服务管理器
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HostedServiceManager{logger: logger.WithCategory("hosting")}
}

// Add 添加托管服务，同一实例只保留一次
func (m *HostedServiceManager) Add(services ...HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, svc := range services {
		if svc == nil || m.contains(svc) {
			continue
		}
		m.services = append(m.services, svc)
	}
}

func (m *HostedServiceManager) contains(svc HostedService) bool {
	if !reflect.TypeOf(svc).Comparable() {
		return false
	}
	for _, s := range m.services {
		if s == svc {
			return true
		}
	}
	return false
}

// Services 返回已添加的服务
func (m *HostedServiceManager) Services() []HostedService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HostedService(nil), m.services...)
}

// StartAll 并发启动所有服务。返回的通道接收非取消类的启动错误
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	services := m.Services()
	errCh := make(chan error, len(services))

	m.logger.Info("启动托管服务", logging.Field{Key: "count", Value: len(services)})
	for _, svc := range services {
		m.wg.Add(1)
		go func(svc HostedService) {
			defer m.wg.Done()

			name := serviceName(svc)
			m.logger.Debug("托管服务启动", logging.Field{Key: "service", Value: name})

			err := svc.Start(ctx)
			switch {
			case err == nil:
				m.logger.Debug("托管服务已结束", logging.Field{Key: "service", Value: name})
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				m.logger.Debug("托管服务随上下文结束", logging.Field{Key: "service", Value: name})
			default:
				m.logger.Error("托管服务运行失败",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err})
				errCh <- fmt.Errorf("hosting: %s: %w", name, err)
			}
		}(svc)
	}
	return errCh
}

// StopAll 按添加的逆序停止所有服务，错误合并后返回
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	services := m.Services()
	m.logger.Info("停止托管服务", logging.Field{Key: "count", Value: len(services)})

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		name := serviceName(services[i])
		if err := services[i].Stop(ctx); err != nil {
			m.logger.Error("托管服务停止失败",
				logging.Field{Key: "service", Value: name},
				logging.Field{Key: "error", Value: err})
			errs = append(errs, fmt.Errorf("hosting: %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Wait 等待所有 Start 调用返回
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}

func serviceName(svc HostedService) string {
	if s, ok := svc.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", svc)
}

// BackgroundService 阻塞到停止信号或上下文取消的基础服务，可以嵌入其他服务
type BackgroundService struct {
	name     string
	logger   logging.Logger
	stopOnce sync.Once
	stopCh   chan struct{}
	doneOnce sync.Once
	doneCh   chan struct{}
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *BackgroundService) String() string { return s.name }

// Start 阻塞直到停止信号或上下文取消
func (s *BackgroundService) Start(ctx context.Context) error {
	defer s.Done()
	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}
	return nil
}

// Stop 发出停止信号并等待 Start 返回
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn("后台服务停止超时", logging.Field{Key: "service", Value: s.name})
		return ctx.Err()
	}
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务完成
func (s *BackgroundService) Done() {
	s.doneOnce.Do(func() { close(s.doneCh) })
}

// TimedHostedService 按固定间隔执行任务的托管服务
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService 创建定时托管服务
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start 运行定时循环，任务失败只记录日志
func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.task(ctx); err != nil {
				s.logger.Error("定时任务失败",
					logging.Field{Key: "service", Value: s.name},
					logging.Field{Key: "error", Value: err})
			}
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
