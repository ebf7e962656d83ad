package xmongo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/omeyang/xdocstore/internal/storageopt"
)

// =============================================================================
// 错误分类
// =============================================================================

// Kind 是错误分类。
type Kind int

const (
	// KindUnknown 不属于本包错误体系的错误。
	KindUnknown Kind = iota
	// KindConnection 未连接，或重试耗尽后仍无法连接。
	KindConnection
	// KindValidation 调用方输入不合法。
	KindValidation
	// KindInvalidIdentifier 标识符格式错误，是 KindValidation 的细分。
	KindInvalidIdentifier
	// KindDuplicateKey 违反唯一约束。
	KindDuplicateKey
	// KindDocumentNotFound 更新或删除的目标文档不存在。
	KindDocumentNotFound
	// KindOperationFailed 未归类的存储层失败。
	KindOperationFailed
)

// String 返回 Kind 的可读名称。
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindConnection:
		return "connection"
	case KindValidation:
		return "validation"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindDocumentNotFound:
		return "document_not_found"
	case KindOperationFailed:
		return "operation_failed"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// KindOf 返回错误链上最外层的分类。
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// =============================================================================
// 哨兵错误
// =============================================================================

// 分类哨兵，配合 errors.Is 使用。
var (
	ErrConnection        = errors.New("xmongo: connection error")
	ErrValidation        = errors.New("xmongo: validation error")
	ErrInvalidIdentifier = errors.New("xmongo: invalid identifier")
	ErrDuplicateKey      = errors.New("xmongo: duplicate key")
	ErrDocumentNotFound  = errors.New("xmongo: document not found")
	ErrOperationFailed   = errors.New("xmongo: operation failed")
)

// 具体原因。
var (
	// ErrNilContext 传入的 context 为 nil。
	ErrNilContext = errors.New("xmongo: context must not be nil")

	// ErrNotConnected Connector 处于未连接状态。
	ErrNotConnected = errors.New("xmongo: not connected")

	// ErrNoDatabase 已连接但尚未选择数据库。
	ErrNoDatabase = errors.New("xmongo: no database selected")

	// ErrUnacknowledged 写操作未被服务端确认。
	ErrUnacknowledged = errors.New("xmongo: write not acknowledged")
)

// 分页错误，包装 storageopt 对应错误，errors.Is 可匹配任一层。
var (
	ErrInvalidPage     = fmt.Errorf("xmongo: %w", storageopt.ErrInvalidPage)
	ErrInvalidPageSize = fmt.Errorf("xmongo: %w", storageopt.ErrInvalidPageSize)
	ErrPageOverflow    = fmt.Errorf("xmongo: %w", storageopt.ErrPageOverflow)
)

// =============================================================================
// 类型化错误
// =============================================================================

// ConnectionError 连接失败或未连接。
type ConnectionError struct {
	URI string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("xmongo: connection: %v", e.Err)
	}
	return fmt.Sprintf("xmongo: connect %s: %v", redactURI(e.URI), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is 匹配 ErrConnection。
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// Kind 返回 KindConnection。
func (e *ConnectionError) Kind() Kind { return KindConnection }

// ValidationError 调用方输入不合法。
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "xmongo: validation: " + e.Reason
	}
	return fmt.Sprintf("xmongo: validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is 匹配 ErrValidation。
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Kind 返回 KindValidation。
func (e *ValidationError) Kind() Kind { return KindValidation }

// InvalidIdentifierError 标识符既不是 ObjectID，也不是 24 位十六进制字符串。
// 同时匹配 ErrInvalidIdentifier 与 ErrValidation。
type InvalidIdentifierError struct {
	Value any
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("xmongo: invalid identifier %#v", e.Value)
}

// Is 匹配 ErrInvalidIdentifier 与 ErrValidation。
func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrInvalidIdentifier || target == ErrValidation
}

// Kind 返回 KindInvalidIdentifier。
func (e *InvalidIdentifierError) Kind() Kind { return KindInvalidIdentifier }

// DuplicateKeyError 违反唯一约束。
// Field 无法确定时为 "unknown"。
type DuplicateKeyError struct {
	Collection string
	Field      string
	Value      any
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("xmongo: duplicate key in %s: %s=%v", e.Collection, e.Field, e.Value)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// Is 匹配 ErrDuplicateKey。
func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// Kind 返回 KindDuplicateKey。
func (e *DuplicateKeyError) Kind() Kind { return KindDuplicateKey }

// NotFoundError 目标文档不存在。
type NotFoundError struct {
	Collection string
	ID         any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("xmongo: document %v not found in %s", e.ID, e.Collection)
}

// Is 匹配 ErrDocumentNotFound。
func (e *NotFoundError) Is(target error) bool { return target == ErrDocumentNotFound }

// Kind 返回 KindDocumentNotFound。
func (e *NotFoundError) Kind() Kind { return KindDocumentNotFound }

// OperationError 包装未归类的存储层失败，保留原始错误。
type OperationError struct {
	Op         string
	Collection string
	Err        error
}

func (e *OperationError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("xmongo: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("xmongo: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Is 匹配 ErrOperationFailed。
func (e *OperationError) Is(target error) bool { return target == ErrOperationFailed }

// Kind 返回 KindOperationFailed。
func (e *OperationError) Kind() Kind { return KindOperationFailed }

// =============================================================================
// 辅助函数
// =============================================================================

func opError(op, coll string, err error) error {
	return &OperationError{Op: op, Collection: coll, Err: err}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// nilContext 同时匹配 ErrValidation 与 ErrNilContext。
func nilContext() error {
	return &ValidationError{Field: "ctx", Reason: "must not be nil", Err: ErrNilContext}
}

// redactURI 隐藏连接串中的密码，兼容多主机写法。
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	authority := rest
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority = rest[:i]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return uri
	}
	user, _, hasPassword := strings.Cut(authority[:at], ":")
	if !hasPassword {
		return uri
	}
	return scheme + "://" + user + ":xxxxx" + rest[at:]
}
