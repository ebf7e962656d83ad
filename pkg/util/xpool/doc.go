// Package xpool 提供有界队列的泛型 worker pool，把旁路回调移出请求路径。
//
// Submit 从不阻塞，队列满时丢弃任务并计入 Stats.Dropped。
// handler 的 panic 被恢复、计数，并在设置了 WithLogger 时记录。
// Close 与 Shutdown 不可在 handler 内调用，否则会等待自身退出。
package xpool
