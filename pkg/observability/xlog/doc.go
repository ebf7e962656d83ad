// Package xlog 是基于 log/slog 的结构化日志。
//
// 所有日志方法都接收 context.Context，EnrichHandler 从中提取当前
// OpenTelemetry span 的 trace_id 与 span_id。Builder 负责级别、
// 格式（text/json）、文件轮转（xrotate）与属性治理：
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xmongoctl.log").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Config 可由 xconf 直接解码，FromConfig 把它转换为 Builder。
package xlog
