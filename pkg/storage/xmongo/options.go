package xmongo

import (
	"context"
	"time"

	"github.com/omeyang/xdocstore/internal/storageopt"
	"github.com/omeyang/xdocstore/pkg/observability/xlog"
	"github.com/omeyang/xdocstore/pkg/observability/xmetrics"
	"github.com/omeyang/xdocstore/pkg/resilience/xretry"

	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// =============================================================================
// 慢查询信息
// =============================================================================

// SlowQueryInfo 慢查询详细信息。
type SlowQueryInfo struct {
	// Database 数据库名称。
	Database string

	// Collection 集合名称。
	Collection string

	// Operation 操作类型（find_one、insert_one、update_many 等）。
	Operation string

	// Filter 查询过滤条件。
	//
	// ⚠️ 安全提示：Filter 包含原始查询条件，可能含有敏感信息。
	// 在钩子中写入日志时请注意脱敏。
	Filter any

	// Duration 操作耗时。
	Duration time.Duration
}

// SlowQueryHook 慢查询同步回调钩子，在请求路径上同步执行。
type SlowQueryHook = storageopt.SyncHook[SlowQueryInfo]

// AsyncSlowQueryHook 慢查询异步回调钩子，通过内部 worker pool 执行。
type AsyncSlowQueryHook = storageopt.AsyncHook[SlowQueryInfo]

// =============================================================================
// Connector 配置
// =============================================================================

// Options 定义 Connector 的配置选项。
type Options struct {
	// HealthTimeout 是 Health 的超时，默认 5s。
	HealthTimeout time.Duration

	// SlowQueryThreshold 为 0 时不检测慢查询。
	SlowQueryThreshold      time.Duration
	SlowQueryHook           SlowQueryHook
	AsyncSlowQueryHook      AsyncSlowQueryHook
	AsyncSlowQueryWorkers   int
	AsyncSlowQueryQueueSize int

	Observer xmetrics.Observer

	// Logger 记录后台任务中的异常，nil 时不记录。
	Logger xlog.Logger

	// ConnectRetry 是 Connect 的默认重试策略，可被 WithConnectRetry 覆盖。
	ConnectRetry xretry.Policy

	// RetryHook 在每次连接尝试失败且即将重试时调用，attempt 从 1 开始。
	RetryHook func(attempt int, err error)

	// BatchSize 是 CreateMany 单次 InsertMany 的文档数。
	// 默认为 1000，上限 10000。
	BatchSize int
}

// Option 定义配置 Connector 的函数类型。
type Option func(*Options)

const (
	// DefaultBatchSize 批量写入默认每批文档数。
	DefaultBatchSize = 1000

	// MaxBatchSize 批量写入每批文档数上限，避免单次请求触及 16MB BSON 限制。
	MaxBatchSize = 10000
)

func defaultOptions() *Options {
	return &Options{
		HealthTimeout:           storageopt.DefaultHealthTimeout,
		AsyncSlowQueryWorkers:   storageopt.DefaultSlowQueryWorkers,
		AsyncSlowQueryQueueSize: storageopt.DefaultSlowQueryQueueSize,
		Observer:                xmetrics.NoopObserver{},
		ConnectRetry:            xretry.DefaultPolicy(),
		BatchSize:               DefaultBatchSize,
	}
}

// WithHealthTimeout 设置健康检查超时时间，非正值被忽略。
func WithHealthTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.HealthTimeout = timeout
		}
	}
}

// WithSlowQueryThreshold 设置慢查询阈值，0 表示禁用，负值被忽略。
func WithSlowQueryThreshold(threshold time.Duration) Option {
	return func(o *Options) {
		if threshold >= 0 {
			o.SlowQueryThreshold = threshold
		}
	}
}

func WithSlowQueryHook(hook func(ctx context.Context, info SlowQueryInfo)) Option {
	return func(o *Options) { o.SlowQueryHook = hook }
}

func WithAsyncSlowQueryHook(hook func(info SlowQueryInfo)) Option {
	return func(o *Options) { o.AsyncSlowQueryHook = hook }
}

// WithAsyncSlowQueryWorkers 设置异步慢查询 worker 数量，非正值被忽略。
func WithAsyncSlowQueryWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.AsyncSlowQueryWorkers = n
		}
	}
}

// WithAsyncSlowQueryQueueSize 设置异步慢查询队列大小，非正值被忽略。
func WithAsyncSlowQueryQueueSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.AsyncSlowQueryQueueSize = n
		}
	}
}

// WithObserver 设置 span 与指标的观测实现，nil 被忽略。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *Options) {
		if observer != nil {
			o.Observer = observer
		}
	}
}

func WithLogger(l xlog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithDefaultConnectRetry 设置 Connect 的默认重试策略，按字面值校验，不填充默认值。
func WithDefaultConnectRetry(p xretry.Policy) Option {
	return func(o *Options) {
		o.ConnectRetry = p
	}
}

// WithRetryHook 设置连接重试回调。
func WithRetryHook(hook func(attempt int, err error)) Option {
	return func(o *Options) {
		o.RetryHook = hook
	}
}

// WithBatchSize 设置 CreateMany 的分批大小，超出上限时截断，非正值被忽略。
func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = min(n, MaxBatchSize)
		}
	}
}

// =============================================================================
// Connect 选项
// =============================================================================

// ConnectOptions 是单次 Connect 调用的参数。
type ConnectOptions struct {
	// Database 连接成功后选中的数据库；为空时不选中。
	Database string

	// Retry 覆盖 Options.ConnectRetry。
	Retry *xretry.Policy

	// Client 追加到驱动的客户端选项，在 ApplyURI 之后生效。
	Client []*options.ClientOptions
}

// ConnectOption 定义配置单次 Connect 的函数类型。
type ConnectOption func(*ConnectOptions)

// WithDatabase 连接成功后选中 name。
func WithDatabase(name string) ConnectOption {
	return func(o *ConnectOptions) {
		o.Database = name
	}
}

// WithConnectRetry 为本次 Connect 指定重试策略。
func WithConnectRetry(p xretry.Policy) ConnectOption {
	return func(o *ConnectOptions) {
		o.Retry = &p
	}
}

// WithClientOptions 追加驱动客户端选项，如连接池大小或 TLS 配置。
func WithClientOptions(opts ...*options.ClientOptions) ConnectOption {
	return func(o *ConnectOptions) {
		o.Client = append(o.Client, opts...)
	}
}
