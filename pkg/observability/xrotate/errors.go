package xrotate

import "errors"

// 配置校验与状态错误。
var (
	ErrEmptyFilename     = errors.New("xrotate: filename is required")
	ErrInvalidMaxSize    = errors.New("xrotate: invalid max size")
	ErrInvalidMaxBackups = errors.New("xrotate: invalid max backups")
	ErrInvalidMaxAge     = errors.New("xrotate: invalid max age")
	ErrNoCleanupPolicy   = errors.New("xrotate: max backups and max age cannot both be 0")
	ErrClosed            = errors.New("xrotate: rotator is closed")
)
