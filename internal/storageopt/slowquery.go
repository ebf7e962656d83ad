package storageopt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/omeyang/xdocstore/pkg/observability/xlog"
	"github.com/omeyang/xdocstore/pkg/util/xpool"
)

const (
	DefaultSlowQueryWorkers   = 10
	DefaultSlowQueryQueueSize = 1000
)

// SyncHook 在操作返回前同步执行，耗时直接计入请求延迟。
type SyncHook[T any] func(ctx context.Context, info T)

// AsyncHook 在后台 worker 中执行；队列满时通知被丢弃。
type AsyncHook[T any] func(info T)

// SlowQueryConfig 配置慢查询检测。Threshold 为 0 时关闭检测。
type SlowQueryConfig[T any] struct {
	Threshold time.Duration
	Hook      SyncHook[T]
	AsyncHook AsyncHook[T]
	Workers   int
	QueueSize int
	// Logger 记录 AsyncHook 的 panic。
	Logger xlog.Logger
}

// SlowQueryDetector 比较耗时与阈值并派发钩子。并发安全。
type SlowQueryDetector[T any] struct {
	threshold time.Duration
	hook      SyncHook[T]
	pool      atomic.Pointer[xpool.Pool[T]]
}

// NewSlowQueryDetector 在设置了 AsyncHook 时立即启动 worker，参数越界直接返回错误。
func NewSlowQueryDetector[T any](cfg SlowQueryConfig[T]) (*SlowQueryDetector[T], error) {
	d := &SlowQueryDetector[T]{threshold: cfg.Threshold, hook: cfg.Hook}
	if cfg.AsyncHook == nil {
		return d, nil
	}

	workers, queue := cfg.Workers, cfg.QueueSize
	if workers <= 0 {
		workers = DefaultSlowQueryWorkers
	}
	if queue <= 0 {
		queue = DefaultSlowQueryQueueSize
	}
	pool, err := xpool.New(workers, queue, func(info T) { cfg.AsyncHook(info) },
		xpool.WithName("slow-query"), xpool.WithLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("storageopt: slow query pool: %w", err)
	}
	d.pool.Store(pool)
	return d, nil
}

// Observe 在 elapsed 达到阈值时调用钩子并返回 true。
func (d *SlowQueryDetector[T]) Observe(ctx context.Context, info T, elapsed time.Duration) bool {
	if d.threshold <= 0 || elapsed < d.threshold {
		return false
	}
	if d.hook != nil {
		d.hook(ctx, info)
	}
	if pool := d.pool.Load(); pool != nil {
		// 满或已关闭时丢弃
		_ = pool.Submit(info)
	}
	return true
}

// Close 停止异步派发并等待已入队的通知执行完毕，可重复调用。
func (d *SlowQueryDetector[T]) Close() {
	if pool := d.pool.Swap(nil); pool != nil {
		_ = pool.Close()
	}
}
