// Package xmetrics 为存储操作提供 span 与指标。
//
// 调用方只依赖 Observer 与 Span 两个接口；NewOTelObserver 是基于
// OpenTelemetry 的实现，NoopObserver 用于关闭观测。
//
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xmongo",
//		Operation: "find_one",
//		Kind:      xmetrics.KindClient,
//	})
//	defer func() { span.End(xmetrics.Result{Err: err, Class: class(err)}) }()
//
// 指标标签为 component、operation 与 outcome；outcome 取 Result.Outcome，
// 成功为 "ok"，失败为 Result.Class。
package xmetrics
