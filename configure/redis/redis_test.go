package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/configure/redis"
	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheService struct {
	Cache   *goredis.Client `di:"cache"`
	Default *goredis.Client `di:""`
}

func TestConfigure(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		ConfigureConfiguration(func(b *config.ConfigurationBuilder) {
			b.AddInMemory(map[string]any{
				"redis": map[string]any{
					"cache": map[string]any{"addr": "cache.local:6380", "db": 2},
				},
			})
		}).
		Configure(redis.Configure(func(b *redis.Builder) {
			b.AddFromConfig("cache", "redis:cache")
			b.AddClient("default", nil)
		})).
		Build()
	require.NoError(t, err)

	svc, err := di.Get[*cacheService](app.Injector())
	require.NoError(t, err)
	require.NotNil(t, svc.Cache)
	require.NotNil(t, svc.Default)
	assert.NotSame(t, svc.Cache, svc.Default)

	opts := svc.Cache.Options()
	assert.Equal(t, "cache.local:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)

	cache, err := di.GetNamed[*goredis.Client](app.Injector(), "cache")
	require.NoError(t, err)
	assert.Same(t, svc.Cache, cache)

	// 默认不检查连接，启动不需要 redis 服务
	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Stop(context.Background()))

	factory, err := di.Get[*redis.RedisClientFactory](app.Injector())
	require.NoError(t, err)
	assert.Empty(t, factory.Names())
}

func TestConfigure_PingOnStart(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		Configure(redis.Configure(func(b *redis.Builder) {
			b.AddClient("default", func(o *redis.RedisClientOptions) {
				o.Addr = "127.0.0.1:1"
				o.DialTimeout = 200 * time.Millisecond
				o.MaxRetries = -1
				o.PingOnStart = true
			})
		})).
		Build()
	require.NoError(t, err)

	err = app.Start(context.Background())
	assert.ErrorContains(t, err, `"default"`)
}

func TestBuilder_Errors(t *testing.T) {
	builder := redis.NewBuilder(nil)
	builder.AddClient("invalid", func(o *redis.RedisClientOptions) {
		o.Addr = ""
	})
	builder.AddClient("duplicate", nil)
	builder.AddClient("duplicate", nil)

	_, err := builder.Build(nil)
	assert.ErrorContains(t, err, "invalid")
	assert.ErrorContains(t, err, "duplicate")
}

func TestBuilder_Empty(t *testing.T) {
	factory, err := redis.NewBuilder(nil).Build(nil)
	require.NoError(t, err)
	assert.Nil(t, factory)
}
