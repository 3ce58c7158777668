package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerOptions zap 日志选项
type ZapLoggerOptions struct {
	// Output 默认 os.Stdout
	Output io.Writer
	// Development 使用 console 编码，否则输出 JSON
	Development bool
}

// ZapLoggerProvider 将日志写入 zap core
type ZapLoggerProvider struct {
	level  zap.AtomicLevel
	logger *zap.Logger
}

// exitless 让 Fatal 级别只写不退出，退出由 Logger.Fatal 统一处理
type exitless struct{}

func (exitless) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {}

func NewZapLoggerProvider(options ZapLoggerOptions) *ZapLoggerProvider {
	out := options.Output
	if out == nil {
		out = os.Stdout
	}

	var encoder zapcore.Encoder
	if options.Development {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)
	return &ZapLoggerProvider{
		level:  level,
		logger: zap.New(core, zap.WithFatalHook(exitless{})),
	}
}

// NewZapLoggerProviderFrom 复用已有的 *zap.Logger
func NewZapLoggerProviderFrom(logger *zap.Logger) *ZapLoggerProvider {
	return &ZapLoggerProvider{
		level:  zap.NewAtomicLevelAt(zapcore.DebugLevel),
		logger: logger.WithOptions(zap.WithFatalHook(exitless{})),
	}
}

func (p *ZapLoggerProvider) CreateLogger(category string) Logger {
	return &zapLogger{provider: p, logger: p.logger.Named(category)}
}

func (p *ZapLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.level.SetLevel(toZapLevel(level))
}

// Sync 刷新 zap 缓冲
func (p *ZapLoggerProvider) Sync() error {
	return p.logger.Sync()
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace, LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelFatal:
		return zapcore.FatalLevel
	default:
		// LogLevelNone
		return zapcore.InvalidLevel
	}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

type zapLogger struct {
	provider *ZapLoggerProvider
	logger   *zap.Logger
}

func (l *zapLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *zapLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *zapLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	_ = l.logger.Sync()
	os.Exit(1)
}

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level >= LogLevelNone {
		return
	}
	l.logger.Log(toZapLevel(level), msg, toZapFields(fields)...)
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	return &zapLogger{provider: l.provider, logger: l.logger.With(toZapFields(fields)...)}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return l.provider.CreateLogger(category)
}
