package etcd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gocrud/inject/core"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type registryService struct {
	Master *clientv3.Client `di:"master"`
	Client *clientv3.Client `di:""`
}

func unreachable(o *EtcdClientOptions) {
	o.Endpoints = []string{"127.0.0.1:1"}
	o.DialTimeout = 200 * time.Millisecond
}

func TestConfigure(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		Configure(Configure(func(b *Builder) {
			b.AddClient("master", unreachable)
			b.AddClient(core.DefaultClientName, unreachable)
		})).
		Build()
	require.NoError(t, err)

	svc, err := di.Get[*registryService](app.Injector())
	require.NoError(t, err)
	require.NotNil(t, svc.Master)
	require.NotNil(t, svc.Client)
	assert.NotSame(t, svc.Master, svc.Client)
	assert.Equal(t, []string{"127.0.0.1:1"}, svc.Master.Endpoints())

	master, err := di.GetNamed[*clientv3.Client](app.Injector(), "master")
	require.NoError(t, err)
	assert.Same(t, svc.Master, master)

	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Stop(context.Background()))
}

func TestConfigure_WatchConfig(t *testing.T) {
	app, err := core.NewApplicationBuilder().
		Configure(Configure(func(b *Builder) {
			b.AddClient(core.DefaultClientName, unreachable)
			b.WatchConfig(core.DefaultClientName, "/app/config/")
		})).
		Build()
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Stop(ctx))
}

func TestBuilder_Errors(t *testing.T) {
	builder := NewBuilder(nil)
	builder.AddClient("invalid", func(o *EtcdClientOptions) {
		o.Endpoints = nil
	})
	builder.AddClient("duplicate", nil)
	builder.AddClient("duplicate", nil)
	builder.WatchConfig("duplicate", " ")

	_, err := builder.Build(logging.NewNop())
	assert.ErrorContains(t, err, "invalid")
	assert.ErrorContains(t, err, "重复配置")
	assert.ErrorContains(t, err, "监听前缀")
}

func TestBuilder_WatchWithoutClient(t *testing.T) {
	_, err := NewBuilder(nil).WatchConfig("default", "/app/").Build(nil)
	assert.Error(t, err)
}

func TestConfigure_WatchUnknownClient(t *testing.T) {
	_, err := core.NewApplicationBuilder().
		Configure(Configure(func(b *Builder) {
			b.AddClient("master", unreachable)
			b.WatchConfig("other", "/app/")
		})).
		Build()
	assert.ErrorContains(t, err, `"other"`)
}

type fakeReloadable struct {
	reloads int
	err     error
}

func (f *fakeReloadable) Reload() error {
	f.reloads++
	return f.err
}

func (f *fakeReloadable) OnReload(func()) {}

func TestConfigWatcher_Handle(t *testing.T) {
	cfg := &fakeReloadable{}
	w := NewConfigWatcher(nil, "/app/", cfg, nil)

	w.handle(errors.New("compacted"), 3)
	assert.Equal(t, 0, cfg.reloads)

	w.handle(nil, 0)
	assert.Equal(t, 0, cfg.reloads)

	w.handle(nil, 2)
	assert.Equal(t, 1, cfg.reloads)

	cfg.err = errors.New("bad source")
	w.handle(nil, 1)
	assert.Equal(t, 2, cfg.reloads)
}
