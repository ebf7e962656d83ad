package xmongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omeyang/xdocstore/pkg/observability/xmetrics"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// FailedDocument 是 CreateMany 中写入失败的一条输入。
type FailedDocument struct {
	// Index 在输入切片中的位置。
	Index int

	// Document 原始输入文档。
	Document Document

	// Err 已归类的错误，通常为 *DuplicateKeyError 或 *OperationError。
	Err error
}

// BulkCreateResult 是 CreateMany 的结果。
// 每条输入恰好出现在 Inserted 或 Failed 之一，两者均按输入顺序排列。
type BulkCreateResult struct {
	// Inserted 成功写入的文档，均带 _id。
	Inserted []Document

	// Failed 写入失败的文档。
	Failed []FailedDocument
}

// CreateMany 以无序方式分批写入 docs，单条失败不影响其余文档。
//
// _id 在客户端分配，以便按位置对应写入结果。
// docs 为空返回 *ValidationError 且不访问服务端；全部失败时同样返回 *ValidationError，
// 其 Err 汇总了每条失败原因。
func (c *Connector) CreateMany(ctx context.Context, coll string, docs []Document) (result *BulkCreateResult, err error) {
	k, err := c.begin(ctx, "create_many", coll, nil)
	if err != nil {
		return nil, err
	}
	var attrs []xmetrics.Attr
	defer func() { k.end(err, attrs...) }()

	if len(docs) == 0 {
		return nil, invalid("documents", "must not be empty")
	}

	prepared := make([]Document, len(docs))
	errs := make([]error, len(docs))
	pending := make([]int, 0, len(docs))
	for i, d := range docs {
		if d == nil {
			errs[i] = invalid("document", "must not be nil")
			continue
		}
		p, perr := withIdentifier(d)
		if perr != nil {
			errs[i] = perr
			continue
		}
		prepared[i] = p
		pending = append(pending, i)
	}

	batchSize := c.opts.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(pending); start += batchSize {
		// 每批开始前检查 context，取消后剩余文档全部记为失败
		if cerr := k.ctx.Err(); cerr != nil {
			for _, i := range pending[start:] {
				errs[i] = opError("create_many", coll, cerr)
			}
			break
		}
		batch := pending[start:min(start+batchSize, len(pending))]
		insertBatch(k.ctx, k.coll, coll, prepared, batch, errs)
	}

	result = &BulkCreateResult{Inserted: make([]Document, 0, len(pending))}
	var causes []error
	for i := range docs {
		if errs[i] == nil {
			result.Inserted = append(result.Inserted, prepared[i])
			continue
		}
		result.Failed = append(result.Failed, FailedDocument{Index: i, Document: docs[i], Err: errs[i]})
		causes = append(causes, fmt.Errorf("document %d: %w", i, errs[i]))
	}
	attrs = append(attrs,
		xmetrics.Int("inserted", len(result.Inserted)),
		xmetrics.Int("failed", len(result.Failed)),
	)

	if len(result.Inserted) == 0 {
		return nil, &ValidationError{
			Field:  "documents",
			Reason: fmt.Sprintf("all %d documents failed", len(docs)),
			Err:    errors.Join(causes...),
		}
	}
	return result, nil
}

// insertBatch 写入一批文档，把失败原因按输入位置记录到 errs。
// batch 中的元素是 prepared 的下标。
func insertBatch(ctx context.Context, coll collectionOperations, collName string, prepared []Document, batch []int, errs []error) {
	models := make([]any, len(batch))
	for j, i := range batch {
		models[j] = prepared[i]
	}

	_, err := coll.InsertMany(ctx, models, options.InsertMany().SetOrdered(false))
	if err == nil {
		return
	}

	writeErrs, wce, ok := splitWriteErrors(err)
	if !ok || (len(writeErrs) == 0 && wce == nil) {
		for _, i := range batch {
			errs[i] = opError("create_many", collName, err)
		}
		return
	}

	for _, we := range writeErrs {
		if we.Index < 0 || we.Index >= len(batch) {
			continue
		}
		i := batch[we.Index]
		if in, dup := duplicateKeyFromWriteError(we); dup {
			errs[i] = newDuplicateKeyError(collName, in, we)
		} else {
			errs[i] = opError("create_many", collName, we)
		}
	}

	// 写关注失败时无法确认其余文档是否落盘，一律记为失败
	if wce != nil {
		for _, i := range batch {
			if errs[i] == nil {
				errs[i] = opError("create_many", collName, wce)
			}
		}
	}
}

// splitWriteErrors 从 InsertMany 的错误中取出逐条写错误与写关注错误。
func splitWriteErrors(err error) ([]mongo.WriteError, *mongo.WriteConcernError, bool) {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		out := make([]mongo.WriteError, len(bwe.WriteErrors))
		for i, e := range bwe.WriteErrors {
			out[i] = e.WriteError
		}
		return out, bwe.WriteConcernError, true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		return we.WriteErrors, we.WriteConcernError, true
	}
	return nil, nil, false
}

// UpdateMany 对所有匹配的文档应用 update，返回被修改的文档数。无匹配时返回 0。
//
// update 中的键要么全部是 "$" 开头的更新运算符，要么全部是普通字段（按 $set 合并），
// 混用返回 *ValidationError。
func (c *Connector) UpdateMany(ctx context.Context, coll string, filter Filter, update Document) (n int64, err error) {
	k, err := c.begin(ctx, "update_many", coll, filter)
	if err != nil {
		return 0, err
	}
	defer func() { k.end(err) }()

	u, err := updateDocument(update)
	if err != nil {
		return 0, err
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := k.coll.UpdateMany(k.ctx, f, u)
	if err != nil {
		return 0, classifyWriteError("update_many", coll, err)
	}
	return res.ModifiedCount, nil
}

// updateDocument 校验 update 并把普通字段包装为 $set。
func updateDocument(update Document) (bson.M, error) {
	if len(update) == 0 {
		return nil, invalid("update", "must not be empty")
	}
	operators := 0
	for key := range update {
		if strings.HasPrefix(key, "$") {
			operators++
		}
	}
	switch operators {
	case len(update):
		return update, nil
	case 0:
		return bson.M{"$set": update}, nil
	default:
		return nil, invalid("update", "must not mix operators and plain fields")
	}
}

// DeleteMany 删除所有匹配的文档并返回删除数。
// filter 为空返回 *ValidationError，清空集合请使用 DeleteAll。
func (c *Connector) DeleteMany(ctx context.Context, coll string, filter Filter) (n int64, err error) {
	k, err := c.begin(ctx, "delete_many", coll, filter)
	if err != nil {
		return 0, err
	}
	defer func() { k.end(err) }()

	if len(filter) == 0 {
		return 0, invalid("filter", "must not be empty, use DeleteAll to remove every document")
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	return deleteMatching(k, "delete_many", coll, f)
}

// DeleteAll 删除集合中的全部文档并返回删除数。
func (c *Connector) DeleteAll(ctx context.Context, coll string) (n int64, err error) {
	k, err := c.begin(ctx, "delete_all", coll, nil)
	if err != nil {
		return 0, err
	}
	defer func() { k.end(err) }()

	return deleteMatching(k, "delete_all", coll, bson.M{})
}

func deleteMatching(k *call, op, coll string, filter bson.M) (int64, error) {
	res, err := k.coll.DeleteMany(k.ctx, filter)
	if err != nil {
		return 0, opError(op, coll, err)
	}
	return res.DeletedCount, nil
}
