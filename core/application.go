package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/di/handlers"
	"github.com/gocrud/inject/hosting"
	"github.com/gocrud/inject/logging"
)

// ErrAlreadyRunning 应用已经启动
var ErrAlreadyRunning = errors.New("app: 应用已经在运行")

// Application 应用程序接口
type Application interface {
	// Run 启动应用并阻塞，直到收到退出信号、调用 Shutdown 或托管服务失败
	Run() error
	// RunContext 与 Run 相同，ctx 取消时也会退出
	RunContext(ctx context.Context) error
	// Start 执行启动钩子并启动托管服务，不阻塞
	Start(ctx context.Context) error
	// Stop 停止托管服务并执行停止钩子
	Stop(ctx context.Context) error
	// Shutdown 请求正在 Run 的应用退出
	Shutdown()

	Injector() di.Injector
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	environment     string
	configBuilder   *config.ConfigurationBuilder
	loggingBuilder  *logging.LoggingBuilder
	injectorConfigs []func(*di.Builder)
	configurators   []Configurator
	hostedServices  []hosting.HostedService
	shutdownTimeout time.Duration
	errs            []error
	mu              sync.Mutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewConfigurationBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境名称
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// ConfigureInjector 在容器创建前追加处理器、构造函数与选项
func (b *ApplicationBuilder) ConfigureInjector(configure func(*di.Builder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		b.injectorConfigs = append(b.injectorConfigs, configure)
	}
	return b
}

// Configure 添加配置器
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range configurators {
		if c != nil {
			b.configurators = append(b.configurators, c)
		}
	}
	return b
}

// AddExtension 添加应用扩展
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	if err := validateExtension(ext); err != nil {
		b.mu.Lock()
		b.errs = append(b.errs, err)
		b.mu.Unlock()
		return b
	}
	if ic, ok := ext.(InjectorConfigurator); ok {
		b.ConfigureInjector(ic.ConfigureInjector)
	}
	if ac, ok := ext.(AppConfigurator); ok {
		b.Configure(ac.ConfigureApp)
	}
	return b
}

// AddHostedService 添加托管服务实例
func (b *ApplicationBuilder) AddHostedService(services ...hosting.HostedService) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hostedServices = append(b.hostedServices, services...)
	return b
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(name string, task func(ctx context.Context) error) *ApplicationBuilder {
	return b.AddHostedService(&functionalService{name: name, task: task})
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// Build 依次构建配置、日志与容器，注册核心服务，执行配置器，最后创建预加载的单例
func (b *ApplicationBuilder) Build() (Application, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	cfg, err := b.configBuilder.BuildReloadable()
	if err != nil {
		return nil, fmt.Errorf("app: 构建配置失败: %w", err)
	}
	settings, err := LoadInjectorSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: 读取容器设置失败: %w", err)
	}

	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")
	logger.Info("构建应用", logging.Field{Key: "environment", Value: b.environment})

	level, _ := settings.level()
	diLogger := logging.NewCompositeLogger([]logging.Logger{loggerFactory.CreateLogger("di")}, level, "di")

	set := handlers.NewSet()
	diBuilder := di.NewBuilder(
		di.WithLogger(diLogger),
		di.WithMaxSubstitutionDepth(settings.MaxSubstitutionDepth),
	).
		AddHandlers(set.Handlers()...).
		AddDependencyHandler(config.NewValueHandler(cfg))
	for _, configure := range b.injectorConfigs {
		configure(diBuilder)
	}
	inj, err := diBuilder.Build()
	if err != nil {
		return nil, fmt.Errorf("app: 创建容器失败: %w", err)
	}

	env := NewEnvironment(b.environment)
	if err := registerCoreServices(inj, cfg, logger, loggerFactory, env, set); err != nil {
		return nil, err
	}

	ctx := &BuildContext{
		injector:      inj,
		handlers:      set,
		configuration: cfg,
		logger:        logger,
		loggerFactory: loggerFactory,
		environment:   env,
		lifecycle:     NewLifecycle(),
	}
	for _, configure := range b.configurators {
		if err := configure(ctx); err != nil {
			return nil, fmt.Errorf("app: 执行配置器失败: %w", err)
		}
	}

	for _, name := range settings.EagerSingletons {
		t, ok := set.Registry.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("app: 预加载的单例 %q 不在类型目录中", name)
		}
		if _, err := inj.GetSingleton(t); err != nil {
			return nil, fmt.Errorf("app: 创建预加载的单例 %q 失败: %w", name, err)
		}
		logger.Debug("已创建预加载的单例", logging.Field{Key: "name", Value: name}, logging.Field{Key: "type", Value: t})
	}

	hosted := append(append([]hosting.HostedService(nil), b.hostedServices...), ctx.hostedServices...)
	return &application{
		injector:        inj,
		configuration:   cfg,
		logger:          logger,
		environment:     env,
		lifecycle:       ctx.lifecycle,
		hostedServices:  hosted,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}, nil
}

func registerCoreServices(inj di.Injector, cfg *config.ReloadableConfiguration, logger logging.Logger,
	factory logging.LoggerFactory, env Environment, set *handlers.Set) error {
	return errors.Join(
		di.Register[config.Configuration](inj, cfg),
		di.Register(inj, cfg),
		di.Register(inj, logger),
		di.Register(inj, factory),
		di.Register(inj, env),
		di.Register(inj, set.Registry),
	)
}

// application 应用程序实现
type application struct {
	injector        di.Injector
	configuration   config.Configuration
	logger          logging.Logger
	environment     Environment
	lifecycle       *LifecycleEvents
	hostedServices  []hosting.HostedService
	shutdownTimeout time.Duration

	mu        sync.Mutex
	running   bool
	manager   *hosting.HostedServiceManager
	errCh     <-chan error
	runCancel context.CancelFunc
	stopOnce  sync.Once
	stopCh    chan struct{}
}

func (a *application) Run() error {
	return a.RunContext(context.Background())
}

func (a *application) RunContext(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.mu.Lock()
	errCh := a.errCh
	a.mu.Unlock()

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("收到退出信号", logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("应用请求退出")
	case <-ctx.Done():
		a.logger.Info("上下文已取消")
	case err := <-errCh:
		a.logger.Error("托管服务失败，应用退出", logging.Field{Key: "error", Value: err})
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Stop(shutdownCtx))
}

func (a *application) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrAlreadyRunning
	}

	if err := a.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("app: 启动钩子执行失败: %w", err)
	}

	manager := hosting.NewHostedServiceManager(a.logger)
	manager.Add(a.hostedServices...)
	for _, v := range a.injector.RetrieveAllOfType(di.TypeOf[hosting.HostedService]()) {
		manager.Add(v.(hosting.HostedService))
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.manager = manager
	a.runCancel = cancel
	a.errCh = manager.StartAll(runCtx)
	a.running = true

	a.logger.Info("应用已启动", logging.Field{Key: "hostedServices", Value: len(manager.Services())})
	return nil
}

func (a *application) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false

	a.logger.Info("正在停止应用")
	stopErr := a.manager.StopAll(ctx)
	a.runCancel()

	done := make(chan struct{})
	go func() {
		a.manager.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("等待托管服务退出超时")
	}

	hookErr := a.lifecycle.Stop(ctx, a.logger)
	a.logger.Info("应用已停止")
	return errors.Join(stopErr, hookErr)
}

func (a *application) Shutdown() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *application) Injector() di.Injector {
	return a.injector
}

func (a *application) Configuration() config.Configuration {
	return a.configuration
}

func (a *application) Logger() logging.Logger {
	return a.logger
}

func (a *application) Environment() Environment {
	return a.environment
}

// Environment 运行环境
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string        { return e.name }
func (e *environment) IsDevelopment() bool { return e.name == "development" }
func (e *environment) IsProduction() bool  { return e.name == "production" }
func (e *environment) IsStaging() bool     { return e.name == "staging" }
