package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetingService struct {
	Greeting string
}

type simpleController struct{}

func (c *simpleController) RegisterRoutes(router gin.IRouter) {
	router.GET("/simple", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "simple")
	})
}

// constructorController 通过构造函数注入
type constructorController struct {
	svc *greetingService
}

func newConstructorController(svc *greetingService) *constructorController {
	return &constructorController{svc: svc}
}

func (c *constructorController) RegisterRoutes(router gin.IRouter) {
	router.GET("/ctor", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.svc.Greeting)
	})
}

// fieldController 通过字段注入
type fieldController struct {
	Svc    *greetingService `di:""`
	Prefix string           `di:",config=web:prefix"`
}

func (c *fieldController) RegisterRoutes(router gin.IRouter) {
	router.GET("/field", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, c.Prefix+c.Svc.Greeting)
	})
}

func newApp(t *testing.T, configure func(*Builder)) core.Application {
	t.Helper()
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"web": map[string]any{"addr": "127.0.0.1:0", "prefix": "field:"},
			})
		}).
		ConfigureInjector(func(b *di.Builder) {
			b.Constructor(newConstructorController)
		}).
		Configure(func(ctx *core.BuildContext) error {
			return core.Register(ctx, &greetingService{Greeting: "hello"})
		}).
		Configure(Configure(configure)).
		Build()
	require.NoError(t, err)
	return app
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code, w.Body.String()
}

func TestHost_Controllers(t *testing.T) {
	app := newApp(t, func(b *Builder) {
		b.AddControllers(&simpleController{}, newConstructorController(nil))
		AddController[*fieldController](b)
	})

	host, err := di.Get[*Host](app.Injector())
	require.NoError(t, err)
	handler, err := host.Handler()
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
	}{
		{"/simple", "simple"},
		{"/ctor", "hello"},
		{"/field", "field:hello"},
	}
	for _, tt := range tests {
		code, body := get(t, handler, tt.path)
		assert.Equal(t, http.StatusOK, code, tt.path)
		assert.Equal(t, tt.want, body, tt.path)
	}

	code, _ := get(t, handler, "/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHost_StartStop(t *testing.T) {
	app := newApp(t, func(b *Builder) {
		b.AddControllers(&simpleController{})
	})
	host, err := di.Get[*Host](app.Injector())
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	require.Eventually(t, func() bool { return host.Addr() != "" }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + host.Addr() + "/simple")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "simple", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))
}

type unresolvableController struct {
	Missing io.Reader `di:""`
}

func (c *unresolvableController) RegisterRoutes(gin.IRouter) {}

func TestHost_ControllerResolutionError(t *testing.T) {
	app := newApp(t, func(b *Builder) {
		AddController[*unresolvableController](b)
	})
	host, err := di.Get[*Host](app.Injector())
	require.NoError(t, err)

	_, err = host.Handler()
	assert.ErrorContains(t, err, "unresolvableController")
}

func TestBuilder_NotAController(t *testing.T) {
	_, err := NewBuilder(nil).AddControllers(&greetingService{}, nil).Build(di.NewInjector())
	assert.ErrorContains(t, err, "greetingService")
}
