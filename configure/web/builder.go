package web

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// Controller 控制器接口，实例从容器取得后注册路由
type Controller interface {
	RegisterRoutes(router gin.IRouter)
}

var controllerType = reflect.TypeFor[Controller]()

// Settings 配置文件中的 web 节
type Settings struct {
	Addr            string        `json:"addr"`
	Mode            string        `json:"mode"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	logger      logging.Logger
	settings    Settings
	engine      *gin.Engine
	controllers []reflect.Type
	errs        []error
}

// NewBuilder 创建 Web 构建器，默认监听 :8080 并使用发布模式
func NewBuilder(logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	return &Builder{
		logger:   logger,
		settings: Settings{Addr: ":8080"},
		engine:   engine,
	}
}

// UseSettings 应用配置文件中的设置，空值保持默认
func (b *Builder) UseSettings(s Settings) *Builder {
	if s.Addr != "" {
		b.settings.Addr = s.Addr
	}
	if s.Mode != "" {
		gin.SetMode(s.Mode)
	}
	if s.ReadTimeout > 0 {
		b.settings.ReadTimeout = s.ReadTimeout
	}
	if s.ShutdownTimeout > 0 {
		b.settings.ShutdownTimeout = s.ShutdownTimeout
	}
	return b
}

// UseAddr 设置监听地址，端口为 0 时由系统分配
func (b *Builder) UseAddr(addr string) *Builder {
	b.settings.Addr = addr
	return b
}

// UsePort 设置端口
func (b *Builder) UsePort(port int) *Builder {
	return b.UseAddr(fmt.Sprintf(":%d", port))
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎，用于高级定制
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// AddControllers 注册控制器。参数可以是 reflect.Type 或控制器实例（只用于推断类型）。
// 控制器在主机启动时从容器解析，构造函数通过 di.Builder.Constructor 注册，字段依赖用 di 标签声明
func (b *Builder) AddControllers(controllers ...any) *Builder {
	for _, c := range controllers {
		t, ok := c.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(c)
		}
		if t == nil || !t.Implements(controllerType) {
			b.errs = append(b.errs, fmt.Errorf("%v 没有实现 web.Controller", t))
			continue
		}
		b.controllers = append(b.controllers, t)
	}
	return b
}

// AddController 是 AddControllers 的泛型版本
func AddController[T Controller](b *Builder) *Builder {
	return b.AddControllers(reflect.TypeFor[T]())
}

// Build 构建 Web 主机
func (b *Builder) Build(injector di.Injector) (*Host, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Host{
		injector:    injector,
		engine:      b.engine,
		controllers: b.controllers,
		settings:    b.settings,
		logger:      b.logger,
		server: &http.Server{
			Addr:        b.settings.Addr,
			Handler:     b.engine,
			ReadTimeout: b.settings.ReadTimeout,
		},
	}, nil
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("请求完成",
			logging.Field{Key: "method", Value: c.Request.Method},
			logging.Field{Key: "path", Value: c.Request.URL.Path},
			logging.Field{Key: "status", Value: c.Writer.Status()},
			logging.Field{Key: "latency", Value: time.Since(start)})
	}
}
