package core

import (
	"errors"
	"fmt"

	"github.com/gocrud/inject/config"
	"github.com/gocrud/inject/logging"
)

// InjectorSectionName 容器设置所在的配置节
const InjectorSectionName = "injector"

// InjectorSettings 容器设置，对应配置节 injector：
//
//	injector:
//	  maxSubstitutionDepth: 16
//	  logLevel: debug
//	  eagerSingletons: [userService, scheduler]
type InjectorSettings struct {
	// MaxSubstitutionDepth 类型替换的最大深度，0 表示使用默认值
	MaxSubstitutionDepth int `json:"maxSubstitutionDepth"`
	// LogLevel 容器日志的最低级别，只能比应用级别更严格
	LogLevel string `json:"logLevel"`
	// EagerSingletons 构建完成后立即创建的单例，按类型目录中的名称引用
	EagerSingletons []string `json:"eagerSingletons"`
}

// LoadInjectorSettings 读取容器设置，配置节不存在时返回零值
func LoadInjectorSettings(cfg config.Configuration) (InjectorSettings, error) {
	settings, err := config.Load[InjectorSettings](cfg, InjectorSectionName)
	if errors.Is(err, config.ErrKeyNotFound) {
		return InjectorSettings{}, nil
	}
	if err != nil {
		return InjectorSettings{}, err
	}
	if settings.MaxSubstitutionDepth < 0 {
		return InjectorSettings{}, fmt.Errorf("app: injector.maxSubstitutionDepth 不能为负数: %d", settings.MaxSubstitutionDepth)
	}
	if _, err := settings.level(); err != nil {
		return InjectorSettings{}, err
	}
	return settings, nil
}

func (s InjectorSettings) level() (logging.LogLevel, error) {
	if s.LogLevel == "" {
		return logging.LogLevelTrace, nil
	}
	return logging.ParseLevel(s.LogLevel)
}
