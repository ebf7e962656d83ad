package xretry

import "errors"

var (
	// ErrInvalidPolicy 表示 Policy 含负值，或 BaseDelay 大于 MaxDelay。
	ErrInvalidPolicy = errors.New("xretry: invalid policy")

	ErrNilContext = errors.New("xretry: nil context")
	ErrNilFunc    = errors.New("xretry: nil function")
)
