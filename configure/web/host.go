package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// Host Web 主机，作为托管服务运行
type Host struct {
	injector    di.Injector
	engine      *gin.Engine
	controllers []reflect.Type
	settings    Settings
	server      *http.Server
	logger      logging.Logger

	mapOnce sync.Once
	mapErr  error

	mu       sync.RWMutex
	listener net.Listener
}

// Handler 返回处理请求的 http.Handler，控制器会先完成注册
func (h *Host) Handler() (http.Handler, error) {
	if err := h.mapControllers(); err != nil {
		return nil, err
	}
	return h.engine, nil
}

// Addr 返回实际监听的地址，启动前为空
func (h *Host) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Start 注册控制器并开始监听，阻塞到服务器关闭
func (h *Host) Start(ctx context.Context) error {
	if err := h.mapControllers(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("web: 监听 %s 失败: %w", h.server.Addr, err)
	}
	h.mu.Lock()
	h.listener = ln
	h.mu.Unlock()

	h.logger.Info("web 主机已启动", logging.Field{Key: "address", Value: ln.Addr().String()})
	if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: %w", err)
	}
	return nil
}

// Stop 优雅关闭服务器
func (h *Host) Stop(ctx context.Context) error {
	if h.settings.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.settings.ShutdownTimeout)
		defer cancel()
	}
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("web 主机关闭失败", logging.Field{Key: "error", Value: err})
		return err
	}
	h.logger.Info("web 主机已停止")
	return nil
}

// mapControllers 从容器解析控制器并注册路由，只执行一次
func (h *Host) mapControllers() error {
	h.mapOnce.Do(func() {
		for _, t := range h.controllers {
			instance, err := h.injector.GetSingleton(t)
			if err != nil {
				h.mapErr = fmt.Errorf("web: 解析控制器 %v 失败: %w", t, err)
				return
			}
			instance.(Controller).RegisterRoutes(h.engine)
			h.logger.Debug("控制器已注册", logging.Field{Key: "controller", Value: t})
		}
	})
	return h.mapErr
}
