// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog，自动注入 OpenTelemetry trace_id/span_id
//   - xmetrics: 操作级观测接口，默认实现基于 OpenTelemetry
//   - xrotate: 日志文件轮转
package observability
