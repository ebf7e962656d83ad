package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xdocstore/pkg/observability/xmetrics"
	unknownName                = "unknown"

	metricOperations = "xdocstore.operation.total"
	metricDuration   = "xdocstore.operation.duration"
	metricSlow       = "xdocstore.operation.slow"
)

// ErrInstrument 表示 Meter 无法创建指标。
var ErrInstrument = errors.New("xmetrics: create instrument failed")

type otelConfig struct {
	name   string
	tracer trace.TracerProvider
	meter  metric.MeterProvider
}

// Option 配置 NewOTelObserver。
type Option func(*otelConfig)

// WithInstrumentationName 设置 Tracer 与 Meter 的 scope 名称，空串忽略。
func WithInstrumentationName(name string) Option {
	return func(c *otelConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithTracerProvider 替换全局 TracerProvider，nil 忽略。
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(c *otelConfig) {
		if p != nil {
			c.tracer = p
		}
	}
}

// WithMeterProvider 替换全局 MeterProvider，nil 忽略。
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(c *otelConfig) {
		if p != nil {
			c.meter = p
		}
	}
}

// NewOTelObserver 返回把每次操作记录为一个 span 和三项指标的 Observer：
//
//   - xdocstore.operation.total：按 component、operation、outcome 计数
//   - xdocstore.operation.duration：耗时直方图，单位秒
//   - xdocstore.operation.slow：慢查询计数
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := otelConfig{
		name:   defaultInstrumentationName,
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	meter := cfg.meter.Meter(cfg.name)
	o := &otelObserver{tracer: cfg.tracer.Tracer(cfg.name)}

	var err error
	if o.operations, err = meter.Int64Counter(metricOperations,
		metric.WithDescription("storage operations by outcome"), metric.WithUnit("{operation}")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstrument, metricOperations, err)
	}
	if o.duration, err = meter.Float64Histogram(metricDuration,
		metric.WithDescription("storage operation latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstrument, metricDuration, err)
	}
	if o.slow, err = meter.Int64Counter(metricSlow,
		metric.WithDescription("operations over the slow query threshold"), metric.WithUnit("{operation}")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstrument, metricSlow, err)
	}
	return o, nil
}

type otelObserver struct {
	tracer     trace.Tracer
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	slow       metric.Int64Counter
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := nonEmpty(opts.Component)
	operation := nonEmpty(opts.Operation)

	kind := trace.SpanKindInternal
	if opts.Kind == KindClient {
		kind = trace.SpanKindClient
	}
	attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
	attrs = append(attrs, attribute.String("component", component), attribute.String("operation", operation))
	attrs = otelAttrs(attrs, opts.Attrs)

	ctx, span := o.tracer.Start(ctx, operation, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
	return ctx, &otelSpan{
		o:         o,
		span:      span,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

type otelSpan struct {
	o         *otelObserver
	span      trace.Span
	ctx       context.Context
	component string
	operation string
	start     time.Time
	ended     atomic.Bool
}

// End 只有第一次调用生效。
func (s *otelSpan) End(r Result) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	elapsed := time.Since(s.start).Seconds()
	outcome := r.Outcome()

	if r.Err != nil {
		s.span.RecordError(r.Err)
		s.span.SetStatus(codes.Error, r.Err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	extra := make([]attribute.KeyValue, 0, 2+len(r.Attrs))
	extra = append(extra, attribute.String("outcome", outcome))
	if r.Slow {
		extra = append(extra, attribute.Bool("slow", true))
	}
	s.span.SetAttributes(otelAttrs(extra, r.Attrs)...)
	s.span.End()

	// 调用方 ctx 已取消时指标仍需记录
	ctx := context.WithoutCancel(s.ctx)
	labels := metric.WithAttributes(
		attribute.String("component", s.component),
		attribute.String("operation", s.operation),
		attribute.String("outcome", outcome),
	)
	s.o.operations.Add(ctx, 1, labels)
	s.o.duration.Record(ctx, elapsed, labels)
	if r.Slow {
		s.o.slow.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
		))
	}
}

func nonEmpty(s string) string {
	if s == "" {
		return unknownName
	}
	return s
}
