package xmongo

import (
	"fmt"
	"time"

	"github.com/omeyang/xdocstore/pkg/resilience/xretry"
)

// Config 是 Connector 的声明式配置，可由 xconf（koanf 标签）或环境变量（env 标签）填充。
//
//	mongo:
//	  uri: mongodb://localhost:27017
//	  database: app
//	  retry:
//	    max_attempts: 5
//	    base_delay: 200ms
//	    max_delay: 5s
//	  slow_query_threshold: 100ms
type Config struct {
	// URI 连接串，必填。
	URI string `koanf:"uri" env:"URI"`

	// Database 连接后选中的数据库，可为空。
	Database string `koanf:"database" env:"DATABASE"`

	// Retry 连接重试策略，零值字段取默认值（3 次、100ms、5s）。
	Retry xretry.Policy `koanf:"retry" envPrefix:"RETRY_"`

	// SlowQueryThreshold 慢查询阈值，0 表示禁用。
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold" env:"SLOW_QUERY_THRESHOLD"`

	// HealthTimeout 健康检查超时，0 表示使用默认值。
	HealthTimeout time.Duration `koanf:"health_timeout" env:"HEALTH_TIMEOUT"`

	// BatchSize CreateMany 分批大小，0 表示使用默认值。
	BatchSize int `koanf:"batch_size" env:"BATCH_SIZE"`
}

// Validate 检查配置是否可用于连接。
func (c Config) Validate() error {
	if c.URI == "" {
		return invalid("uri", "must not be empty")
	}
	if err := c.Retry.Normalize().Validate(); err != nil {
		return &ValidationError{Field: "retry", Reason: err.Error(), Err: err}
	}
	if c.SlowQueryThreshold < 0 {
		return invalid("slow_query_threshold", fmt.Sprintf("%s < 0", c.SlowQueryThreshold))
	}
	if c.HealthTimeout < 0 {
		return invalid("health_timeout", fmt.Sprintf("%s < 0", c.HealthTimeout))
	}
	if c.BatchSize < 0 || c.BatchSize > MaxBatchSize {
		return invalid("batch_size", fmt.Sprintf("%d out of range [0, %d]", c.BatchSize, MaxBatchSize))
	}
	return nil
}

// RetryPolicy 返回填充默认值后的重试策略。
func (c Config) RetryPolicy() xretry.Policy {
	return c.Retry.Normalize()
}

// Options 把配置转换为 New 的选项，extra 追加在后面可覆盖同名设置。
func (c Config) Options(extra ...Option) []Option {
	opts := []Option{
		WithDefaultConnectRetry(c.RetryPolicy()),
		WithSlowQueryThreshold(c.SlowQueryThreshold),
		WithHealthTimeout(c.HealthTimeout),
		WithBatchSize(c.BatchSize),
	}
	return append(opts, extra...)
}

// ConnectOptions 返回 Connect 的选项。
func (c Config) ConnectOptions() []ConnectOption {
	var opts []ConnectOption
	if c.Database != "" {
		opts = append(opts, WithDatabase(c.Database))
	}
	return opts
}
