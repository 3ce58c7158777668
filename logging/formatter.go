package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Formatter 日志格式化接口
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// TextFormatter 文本格式化器
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

// Format 输出形如 `2006-01-02 15:04:05 INFO [di] message {k=v}` 的一行
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	buffer := bufferPool.Get().(*bytes.Buffer)
	buffer.Reset()
	defer bufferPool.Put(buffer)

	if f.IncludeTimestamp {
		buffer.WriteString(entry.Time.Format(f.TimestampFormat))
		buffer.WriteByte(' ')
	}

	if f.ColorOutput {
		buffer.WriteString(colorize(entry.Level, entry.Level.String()))
	} else {
		buffer.WriteString(entry.Level.String())
	}

	if entry.Category != "" {
		buffer.WriteString(" [")
		buffer.WriteString(entry.Category)
		buffer.WriteByte(']')
	}

	buffer.WriteByte(' ')
	buffer.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buffer.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buffer.WriteString(", ")
			}
			buffer.WriteString(field.Key)
			buffer.WriteByte('=')
			fmt.Fprintf(buffer, "%v", field.Value)
		}
		buffer.WriteByte('}')
	}
	buffer.WriteByte('\n')

	// buffer 会被复用，必须拷贝
	return bytes.Clone(buffer.Bytes()), nil
}

func colorize(level LogLevel, text string) string {
	var code string
	switch level {
	case LogLevelTrace, LogLevelDebug:
		code = "36"
	case LogLevelInfo:
		code = "32"
	case LogLevelWarn:
		code = "33"
	case LogLevelError, LogLevelFatal:
		code = "31"
	default:
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

// JsonFormatter JSON 格式化器
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Format 格式化日志
func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := map[string]any{
		"time":  entry.Time.Format(f.TimestampFormat),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = fieldValue(field.Value)
		}
		data["fields"] = fields
	}
	return json.Marshal(data)
}

// fieldValue 让 error 和 reflect.Type 这类值在 JSON 中可读
func fieldValue(v any) any {
	switch x := v.(type) {
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}
