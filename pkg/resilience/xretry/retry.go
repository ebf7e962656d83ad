package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

type runConfig struct {
	onRetry func(failures int, err error)
}

// Option 配置单次 Do 调用。
type Option func(*runConfig)

// WithOnRetry 在每次失败且即将等待重试时回调，failures 从 1 开始。nil 忽略。
func WithOnRetry(f func(failures int, err error)) Option {
	return func(c *runConfig) {
		if f != nil {
			c.onRetry = f
		}
	}
}

// Do 按 p 执行 fn，所有错误一律重试。
// 全部失败时返回最后一次的错误；ctx 取消会中断等待并返回。
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, opts ...Option) error {
	if fn == nil {
		return ErrNilFunc
	}
	_, err := DoWithResult(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// DoWithResult 与 Do 相同，返回 fn 成功时的结果。
func DoWithResult[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}
	if err := p.Validate(); err != nil {
		return zero, err
	}

	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ro := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(p.MaxAttempts)),
		// n 从 1 开始，即已失败次数
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return p.Delay(int(min(n, math.MaxInt32)))
		}),
		retry.LastErrorOnly(true),
	}
	if cfg.onRetry != nil {
		// OnRetry 的 n 从 0 开始，最后一次失败后也会调用，此时不再重试
		ro = append(ro, retry.OnRetry(func(n uint, err error) {
			failures := int(min(n, math.MaxInt32)) + 1
			if failures >= p.MaxAttempts {
				return
			}
			cfg.onRetry(failures, err)
		}))
	}
	return retry.NewWithData[T](ro...).Do(func() (T, error) {
		return fn(ctx)
	})
}
