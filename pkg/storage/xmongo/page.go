package xmongo

import (
	"context"
	"errors"

	"github.com/omeyang/xdocstore/internal/storageopt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// PageOptions 分页查询选项。
type PageOptions struct {
	// Page 页码，从 1 开始。
	Page int64

	// PageSize 每页大小。
	PageSize int64

	// Sort 排序条件。
	//
	// 强烈建议指定排序字段，否则翻页时可能出现重复或遗漏。
	Sort bson.D

	// Projection 字段投影，nil 表示返回全部字段。
	Projection any
}

// PageResult 分页查询结果。
//
// Total 来自独立的 COUNT 查询，与 Data 不在同一快照中，高并发写入时两者可能略有差异。
type PageResult struct {
	// Data 当前页数据，无数据时为空切片。
	Data []Document

	// Total 总记录数。
	Total int64

	// Page 当前页码。
	Page int64

	// PageSize 每页大小。
	PageSize int64

	// TotalPages 总页数。
	TotalPages int64
}

// FindPage 分页查询。先 COUNT 再查询当前页，两次查询不在同一事务中。
func (c *Connector) FindPage(ctx context.Context, coll string, filter Filter, opts PageOptions) (result *PageResult, err error) {
	k, err := c.begin(ctx, "find_page", coll, filter)
	if err != nil {
		return nil, err
	}
	defer func() { k.end(err) }()

	skip, err := storageopt.ValidatePagination(opts.Page, opts.PageSize)
	if err != nil {
		return nil, paginationError(err)
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	total, err := k.coll.CountDocuments(k.ctx, f)
	if err != nil {
		return nil, opError("find_page", coll, err)
	}

	qo := QueryOptions{Skip: skip, Limit: opts.PageSize, Sort: opts.Sort, Projection: opts.Projection}
	cursor, err := k.coll.Find(k.ctx, f, qo.findOptions())
	if err != nil {
		return nil, opError("find_page", coll, err)
	}
	var data []Document
	if err = cursor.All(k.ctx, &data); err != nil {
		return nil, opError("find_page", coll, err)
	}
	if data == nil {
		data = []Document{}
	}

	return &PageResult{
		Data:       data,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: storageopt.CalculateTotalPages(total, opts.PageSize),
	}, nil
}

// paginationError 把 storageopt 的分页错误转换为 *ValidationError，
// errors.Is 仍可匹配 ErrInvalidPage 等哨兵。
func paginationError(err error) error {
	var cause error
	field := "page"
	switch {
	case errors.Is(err, storageopt.ErrInvalidPage):
		cause = ErrInvalidPage
	case errors.Is(err, storageopt.ErrInvalidPageSize):
		cause, field = ErrInvalidPageSize, "page_size"
	case errors.Is(err, storageopt.ErrPageOverflow):
		cause = ErrPageOverflow
	default:
		cause = err
	}
	return &ValidationError{Field: field, Reason: cause.Error(), Err: cause}
}
