package xlog

import (
	"log/slog"
	"time"
)

// 标准字段名。
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyCount      = "count"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyDatabase   = "db"
	KeyCollection = "collection"
	KeyAttempt    = "attempt"

	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyTraceFlags = "trace_flags"
)

// Err 返回 error 属性。err 为 nil 时返回空属性，slog 会忽略它。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 以 time.Duration 的字符串形式记录耗时。
func Duration(d time.Duration) slog.Attr { return slog.String(KeyDuration, d.String()) }

func Count(n int64) slog.Attr { return slog.Int64(KeyCount, n) }

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

func Database(name string) slog.Attr { return slog.String(KeyDatabase, name) }

func Collection(name string) slog.Attr { return slog.String(KeyCollection, name) }

// Attempt 记录重试序号，从 1 开始。
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }
