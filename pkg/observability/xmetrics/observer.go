package xmetrics

import "context"

// Kind 区分跨度是进程内步骤还是对外部服务的调用。
type Kind uint8

const (
	KindInternal Kind = iota
	KindClient
)

// Attr 是一个观测属性。Value 支持 string、bool、int、int64，其余类型按 %v 输出。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 描述一次存储操作。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 是操作结束时上报的结果。
type Result struct {
	Err error
	// Class 是错误类别，作为指标的 outcome 标签；Err 非 nil 且 Class 为空时记为 "error"。
	Class string
	// Slow 标记该操作超过了慢查询阈值。
	Slow  bool
	Attrs []Attr
}

// Outcome 返回结果在指标中的标签值：成功为 "ok"。
func (r Result) Outcome() string {
	switch {
	case r.Err == nil:
		return outcomeOK
	case r.Class != "":
		return r.Class
	default:
		return outcomeError
	}
}

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Span 是进行中的一次观测，End 可重复调用。
type Span interface {
	End(result Result)
}

// Observer 为每次操作创建 Span。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不做任何记录。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是 NoopObserver 返回的跨度。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 通过 observer 开始观测。observer 为 nil 或返回 nil 时退化为 NoopSpan，
// 返回的 context 与 Span 始终非 nil。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	next, span := observer.Start(ctx, opts)
	if next == nil {
		next = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return next, span
}
