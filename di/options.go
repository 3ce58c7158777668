package di

import "github.com/gocrud/inject/logging"

// DefaultMaxSubstitutionDepth 类型替换链的默认最大深度
const DefaultMaxSubstitutionDepth = 32

type options struct {
	logger               logging.Logger
	maxSubstitutionDepth int
}

func defaultOptions() *options {
	return &options{
		logger:               logging.NewNop(),
		maxSubstitutionDepth: DefaultMaxSubstitutionDepth,
	}
}

// Option 配置容器。
type Option func(*options)

// WithLogger 设置容器日志，日志类别为 "di"
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxSubstitutionDepth 设置类型替换链的最大深度，小于 1 时使用默认值
func WithMaxSubstitutionDepth(depth int) Option {
	return func(o *options) {
		if depth < 1 {
			depth = DefaultMaxSubstitutionDepth
		}
		o.maxSubstitutionDepth = depth
	}
}
