package xpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xdocstore/pkg/observability/xlog"
)

const (
	MaxWorkers   = 1 << 16
	MaxQueueSize = 1 << 24
)

var (
	ErrNilHandler = errors.New("xpool: nil handler")
	ErrStopped    = errors.New("xpool: pool stopped")
	ErrQueueFull  = errors.New("xpool: queue full")
	ErrNilContext = errors.New("xpool: nil context")

	// ErrInvalidSize 表示 workers 或 queueSize 超出允许范围。
	ErrInvalidSize = errors.New("xpool: invalid size")
)

type config struct {
	name   string
	logger xlog.Logger
}

// Setting 配置 Pool。
type Setting func(*config)

// WithName 设置日志中的 pool 名称。
func WithName(name string) Setting {
	return func(c *config) { c.name = name }
}

// WithLogger 设置记录 handler panic 的 Logger，nil 表示只计数不记录。
func WithLogger(l xlog.Logger) Setting {
	return func(c *config) { c.logger = l }
}

// Stats 是 Pool 的累计计数。
type Stats struct {
	Submitted uint64
	Dropped   uint64
	Panics    uint64
}

// Pool 用固定数量的 worker 处理有界队列中的任务。
type Pool[T any] struct {
	handler func(T)
	cfg     config

	// mu 保护 queue 的关闭，Submit 持读锁
	mu      sync.RWMutex
	queue   chan T
	stopped bool

	workers sync.WaitGroup
	done    chan struct{}

	submitted atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

// New 创建 Pool 并立即启动 worker。
// workers 取值 [1, MaxWorkers]，queueSize 取值 [1, MaxQueueSize]。
func New[T any](workers, queueSize int, handler func(T), settings ...Setting) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > MaxWorkers {
		return nil, fmt.Errorf("%w: workers %d", ErrInvalidSize, workers)
	}
	if queueSize < 1 || queueSize > MaxQueueSize {
		return nil, fmt.Errorf("%w: queue %d", ErrInvalidSize, queueSize)
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		done:    make(chan struct{}),
	}
	for _, s := range settings {
		s(&p.cfg)
	}

	p.workers.Add(workers)
	for range workers {
		go func() {
			defer p.workers.Done()
			for task := range p.queue {
				p.handle(task)
			}
		}()
	}
	go func() {
		p.workers.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Pool[T]) handle(task T) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		p.panics.Add(1)
		if p.cfg.logger == nil {
			return
		}
		p.cfg.logger.Error(context.Background(), "xpool: handler panic",
			slog.String("pool", p.cfg.name),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())),
		)
	}()
	p.handler(task)
}

// Submit 把任务放入队列，从不阻塞。
// 队列满返回 ErrQueueFull，关闭后返回 ErrStopped。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close 停止接收任务，等待队列排空。不可在 handler 内调用。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 与 Close 相同，ctx 到期时提前返回；剩余任务仍会被处理，可通过 Done 等待。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 在所有 worker 退出后关闭。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Pool[T]) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Dropped:   p.dropped.Load(),
		Panics:    p.panics.Load(),
	}
}
