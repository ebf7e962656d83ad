package xlog

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// ErrNilHandler 表示 NewEnrichHandler 收到 nil handler。
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 在每条记录上追加 ctx 中有效 span 的 trace_id、span_id 与 trace_flags。
// ctx 为 nil 或没有有效 span 时原样转发。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装 base。调用 WithGroup 之后追加的字段位于该分组下。
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			// slog 要求修改前先 Clone
			r = r.Clone()
			r.AddAttrs(
				slog.String(KeyTraceID, sc.TraceID().String()),
				slog.String(KeySpanID, sc.SpanID().String()),
				slog.String(KeyTraceFlags, sc.TraceFlags().String()),
			)
		}
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
