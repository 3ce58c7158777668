package cron

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler 定时任务托管服务，随应用启动和停止
type Scheduler struct {
	*hosting.BackgroundService
	cron   *cron.Cron
	logger logging.Logger
	mu     sync.RWMutex
	jobs   map[string]cron.EntryID
	names  []string
}

type schedulerOptions struct {
	seconds    bool
	location   *time.Location
	cronLogger bool
}

func newScheduler(logger logging.Logger, opts schedulerOptions) *Scheduler {
	adapter := newCronLogger(logger)
	cronOpts := []cron.Option{
		cron.WithLocation(opts.location),
		cron.WithChain(cron.Recover(adapter)),
	}
	if opts.cronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(adapter))
	}
	if opts.seconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &Scheduler{
		BackgroundService: hosting.NewBackgroundService("cron", logger),
		cron:              cron.New(cronOpts...),
		logger:            logger,
		jobs:              make(map[string]cron.EntryID),
	}
}

// add 添加定时任务，名称在调度器内唯一
func (s *Scheduler) add(spec, name string, job func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("任务 %q 已存在", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(); err != nil {
			s.logger.Error("定时任务失败",
				logging.Field{Key: "job", Value: name},
				logging.Field{Key: "error", Value: err})
			return
		}
		s.logger.Debug("定时任务完成",
			logging.Field{Key: "job", Value: name},
			logging.Field{Key: "elapsed", Value: time.Since(start)})
	})
	if err != nil {
		return fmt.Errorf("任务 %q 的表达式 %q 无效: %w", name, spec, err)
	}

	s.jobs[name] = id
	s.names = append(s.names, name)
	s.logger.Info("定时任务已注册", logging.Field{Key: "job", Value: name}, logging.Field{Key: "spec", Value: spec})
	return nil
}

// Remove 移除定时任务
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.jobs[name]
	if !exists {
		return false
	}
	s.cron.Remove(id)
	delete(s.jobs, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
	return true
}

// Jobs 按注册顺序返回任务名称
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.names)
}

// Next 返回任务下一次执行的时间，调度器未启动时为零值
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.RLock()
	id, exists := s.jobs[name]
	s.mu.RUnlock()
	if !exists {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start 启动调度并阻塞到停止
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("定时任务调度启动", logging.Field{Key: "jobs", Value: len(s.Jobs())})
	s.cron.Start()
	return s.BackgroundService.Start(ctx)
}

// Stop 停止调度，等待正在执行的任务完成
func (s *Scheduler) Stop(ctx context.Context) error {
	running := s.cron.Stop()
	select {
	case <-running.Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
	return s.BackgroundService.Stop(ctx)
}

// cronLogger 把 cron 库的日志接口适配到 logging.Logger
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger.WithCategory("cron")}
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []any) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
