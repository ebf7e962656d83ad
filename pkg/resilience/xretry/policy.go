package xretry

import (
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// Policy 是连接重试的参数。
//
// Do 与 DoWithResult 按字面值执行：MaxAttempts 至少为 1，BaseDelay 为 0 表示不等待。
// 从配置加载的策略先经 Normalize 把未设置的字段换成默认值。
type Policy struct {
	// MaxAttempts 含首次尝试。
	MaxAttempts int           `koanf:"max_attempts" env:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `koanf:"base_delay" env:"BASE_DELAY"`
	MaxDelay    time.Duration `koanf:"max_delay" env:"MAX_DELAY"`
}

// DefaultPolicy 返回 3 次尝试、100ms 起步、5s 封顶的策略。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Validate 要求 MaxAttempts >= 1 且 0 <= BaseDelay <= MaxDelay。
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d < 1", ErrInvalidPolicy, p.MaxAttempts)
	case p.BaseDelay < 0:
		return fmt.Errorf("%w: base delay %s < 0", ErrInvalidPolicy, p.BaseDelay)
	case p.MaxDelay < 0:
		return fmt.Errorf("%w: max delay %s < 0", ErrInvalidPolicy, p.MaxDelay)
	case p.BaseDelay > p.MaxDelay:
		return fmt.Errorf("%w: base delay %s > max delay %s", ErrInvalidPolicy, p.BaseDelay, p.MaxDelay)
	}
	return nil
}

// Normalize 把等于 0 的字段换成默认值，负值保留给 Validate 报错。
// 用于配置加载的策略，0 在配置里表示未设置。
func (p Policy) Normalize() Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Delay 返回第 failures 次失败后的等待时间：min(BaseDelay*2^(failures-1), MaxDelay)。
// failures 小于 1 按 1 计；不加抖动。
func (p Policy) Delay(failures int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		return 0
	}
	for i := 1; i < failures; i++ {
		if d >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Schedule 返回耗尽全部尝试时依次等待的时长，共 MaxAttempts-1 项。
func (p Policy) Schedule() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	for k := 1; k < p.MaxAttempts; k++ {
		out = append(out, p.Delay(k))
	}
	return out
}
