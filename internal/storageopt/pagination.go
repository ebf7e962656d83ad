package storageopt

import (
	"errors"
	"math"
)

// 分页参数错误。
var (
	ErrInvalidPage     = errors.New("storageopt: page must be >= 1")
	ErrInvalidPageSize = errors.New("storageopt: page size must be >= 1")
	ErrPageOverflow    = errors.New("storageopt: page offset overflows int64")
)

// ValidatePagination 校验页码与页大小（均从 1 开始），返回偏移量 (page-1)*pageSize。
// 先检查页码再检查页大小，偏移量超出 int64 时返回 ErrPageOverflow。
func ValidatePagination(page, pageSize int64) (int64, error) {
	if page < 1 {
		return 0, ErrInvalidPage
	}
	if pageSize < 1 {
		return 0, ErrInvalidPageSize
	}
	if page-1 > math.MaxInt64/pageSize {
		return 0, ErrPageOverflow
	}
	return (page - 1) * pageSize, nil
}

// CalculateTotalPages 按向上取整计算总页数，total 或 pageSize 非正时返回 0。
func CalculateTotalPages(total, pageSize int64) int64 {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}
