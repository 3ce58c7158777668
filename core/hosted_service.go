package core

import (
	"context"

	"github.com/gocrud/inject/hosting"
)

// HostedService 托管服务，见 hosting.HostedService
type HostedService = hosting.HostedService

// functionalService 把函数包装成托管服务
type functionalService struct {
	name string
	task func(ctx context.Context) error
}

func (f *functionalService) String() string { return f.name }

func (f *functionalService) Start(ctx context.Context) error {
	return f.task(ctx)
}

func (f *functionalService) Stop(context.Context) error {
	return nil
}
