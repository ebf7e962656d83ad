// Package xretry 执行带指数退避的重试循环，底层是 [avast/retry-go/v5]。
//
//	p := xretry.Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second}
//	client, err := xretry.DoWithResult(ctx, p, func(ctx context.Context) (*Client, error) {
//	    return dial(ctx)
//	})
//
// 第 k 次失败后等待 min(BaseDelay*2^(k-1), MaxDelay)，不加抖动。
// 所有错误一律重试；最后一次尝试的错误原样返回。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
