package storageopt

import (
	"context"
	"time"
)

// DefaultHealthTimeout 是 Health 的默认超时。
const DefaultHealthTimeout = 5 * time.Second

// Bounded 在 timeout 为正时给 ctx 加上超时，否则原样返回 ctx。
func Bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
