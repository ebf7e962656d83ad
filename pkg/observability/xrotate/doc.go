// Package xrotate 提供按大小轮转的日志文件写入器，基于 lumberjack v2。
//
// Rotator 实现 io.WriteCloser，可直接作为 xlog 的输出目标。
// 父目录不存在时自动创建，备份按数量与天数清理。
package xrotate
