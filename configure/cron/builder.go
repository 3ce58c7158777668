package cron

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/robfig/cron/v3"
)

var (
	errorType   = reflect.TypeFor[error]()
	cronJobType = reflect.TypeFor[cron.Job]()
)

// Builder 定时任务配置构建器
type Builder struct {
	seconds    bool
	cronLogger bool
	location   string
	jobs       []jobDefinition
}

type jobDefinition struct {
	spec    string
	name    string
	handler any
	jobType reflect.Type
}

// NewBuilder 创建构建器，默认使用 UTC 和分钟级表达式
func NewBuilder() *Builder {
	return &Builder{location: "UTC"}
}

// WithSeconds 启用秒级表达式
func (b *Builder) WithSeconds() *Builder {
	b.seconds = true
	return b
}

// WithLocation 设置时区，例如 "Asia/Shanghai"
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.cronLogger = true
	return b
}

// AddJob 添加任务。handler 是函数，参数在每次执行时从容器取得单例，
// 可以没有返回值，也可以返回 error
//
//	b.AddJob("*/5 * * * *", "sync", func(svc *SyncService) error {
//	    return svc.Sync()
//	})
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddJobType 添加实现 cron.Job 的任务类型，实例从容器取得
func (b *Builder) AddJobType(spec, name string, t reflect.Type) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, jobType: t})
	return b
}

// AddJobOf 是 AddJobType 的泛型版本
func AddJobOf[T cron.Job](b *Builder, spec, name string) *Builder {
	return b.AddJobType(spec, name, reflect.TypeFor[T]())
}

// Build 创建调度器并注册所有任务
func (b *Builder) Build(injector di.Injector, logger logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	loc, err := time.LoadLocation(b.location)
	if err != nil {
		return nil, fmt.Errorf("时区 %q 无效: %w", b.location, err)
	}

	scheduler := newScheduler(logger, schedulerOptions{
		seconds:    b.seconds,
		location:   loc,
		cronLogger: b.cronLogger,
	})

	var errs []error
	for _, job := range b.jobs {
		run, err := b.compile(injector, job)
		if err == nil {
			err = scheduler.add(job.spec, job.name, run)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return scheduler, nil
}

func (b *Builder) compile(injector di.Injector, job jobDefinition) (func() error, error) {
	if job.jobType != nil {
		return jobTypeRunner(injector, job)
	}
	return funcRunner(injector, job)
}

func jobTypeRunner(injector di.Injector, job jobDefinition) (func() error, error) {
	if !job.jobType.Implements(cronJobType) {
		return nil, fmt.Errorf("任务 %q: %v 没有实现 cron.Job", job.name, job.jobType)
	}
	return func() error {
		instance, err := injector.GetSingleton(job.jobType)
		if err != nil {
			return err
		}
		instance.(cron.Job).Run()
		return nil
	}, nil
}

func funcRunner(injector di.Injector, job jobDefinition) (func() error, error) {
	if fn, ok := job.handler.(func()); ok {
		return func() error { fn(); return nil }, nil
	}

	fn := reflect.ValueOf(job.handler)
	if job.handler == nil || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("任务 %q: 处理器必须是函数，实际为 %T", job.name, job.handler)
	}
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("任务 %q: 处理器不能是可变参数函数", job.name)
	}
	switch {
	case ft.NumOut() == 0:
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	default:
		return nil, fmt.Errorf("任务 %q: 处理器只能没有返回值或返回 error", job.name)
	}

	return func() error {
		args := make([]reflect.Value, ft.NumIn())
		for i := range args {
			v, err := injector.GetSingleton(ft.In(i))
			if err != nil {
				return fmt.Errorf("解析第 %d 个参数 %v 失败: %w", i, ft.In(i), err)
			}
			args[i] = reflect.ValueOf(v)
		}
		out := fn.Call(args)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}, nil
}
