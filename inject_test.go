package inject

import (
	"context"
	"errors"
	"testing"

	"github.com/gocrud/inject/core"
	"github.com/stretchr/testify/assert"
)

func TestRun_BuildError(t *testing.T) {
	boom := errors.New("boom")
	err := Run(func(b *core.ApplicationBuilder) {
		b.Configure(func(*core.BuildContext) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_TaskFailure(t *testing.T) {
	boom := errors.New("task failed")
	err := Run(func(b *core.ApplicationBuilder) {
		b.AddTask("failing", func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
}
