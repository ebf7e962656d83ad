package xmongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// QueryOptions 控制 FindMany 的结果形状。服务端按 Sort、Skip、Limit 的顺序应用。
type QueryOptions struct {
	// Limit 最多返回的文档数，0 表示不限制。
	Limit int64

	// Skip 跳过的文档数。
	Skip int64

	// Sort 排序条件，例如 bson.D{{Key: "created_at", Value: -1}}。
	// 未指定排序时，Skip/Limit 的结果顺序由服务端决定。
	Sort bson.D

	// Projection 字段投影，nil 表示返回全部字段。
	Projection any
}

func (o QueryOptions) validate() error {
	if o.Limit < 0 {
		return invalid("limit", "must not be negative")
	}
	if o.Skip < 0 {
		return invalid("skip", "must not be negative")
	}
	return nil
}

func (o QueryOptions) findOptions() *options.FindOptionsBuilder {
	fo := options.Find()
	if len(o.Sort) > 0 {
		fo.SetSort(o.Sort)
	}
	if o.Skip > 0 {
		fo.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		fo.SetLimit(o.Limit)
	}
	if o.Projection != nil {
		fo.SetProjection(o.Projection)
	}
	return fo
}

// =============================================================================
// 读取
// =============================================================================

// FindOne 返回第一个匹配的文档。未命中返回 (nil, false, nil)。
func (c *Connector) FindOne(ctx context.Context, coll string, filter Filter) (Document, bool, error) {
	var doc Document
	found, err := c.findOneInto(ctx, "find_one", coll, filter, &doc)
	if err != nil || !found {
		return nil, false, err
	}
	return doc, true, nil
}

func (c *Connector) findOneInto(ctx context.Context, op, coll string, filter Filter, out any) (found bool, err error) {
	k, err := c.begin(ctx, op, coll, filter)
	if err != nil {
		return false, err
	}
	defer func() { k.end(err) }()

	f, err := normalizeFilter(filter)
	if err != nil {
		return false, err
	}
	err = k.coll.FindOne(k.ctx, f).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, opError(op, coll, err)
	}
	return true, nil
}

// FindMany 返回全部匹配的文档，无匹配时返回空切片。
func (c *Connector) FindMany(ctx context.Context, coll string, filter Filter, opts QueryOptions) ([]Document, error) {
	var docs []Document
	if err := c.findManyInto(ctx, "find_many", coll, filter, opts, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// findManyInto 把结果解码到 out（指向切片的指针）。
func (c *Connector) findManyInto(ctx context.Context, op, coll string, filter Filter, opts QueryOptions, out any) (err error) {
	k, err := c.begin(ctx, op, coll, filter)
	if err != nil {
		return err
	}
	defer func() { k.end(err) }()

	if err = opts.validate(); err != nil {
		return err
	}
	f, err := normalizeFilter(filter)
	if err != nil {
		return err
	}
	cursor, err := k.coll.Find(k.ctx, f, opts.findOptions())
	if err != nil {
		return opError(op, coll, err)
	}
	// All 结束时会关闭游标
	if err = cursor.All(k.ctx, out); err != nil {
		return opError(op, coll, err)
	}
	return nil
}

// Count 返回匹配的文档数。
func (c *Connector) Count(ctx context.Context, coll string, filter Filter) (n int64, err error) {
	k, err := c.begin(ctx, "count", coll, filter)
	if err != nil {
		return 0, err
	}
	defer func() { k.end(err) }()

	f, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err = k.coll.CountDocuments(k.ctx, f)
	if err != nil {
		return 0, opError("count", coll, err)
	}
	return n, nil
}

// Exists 报告是否存在匹配的文档。只取回 _id，不传输完整文档。
func (c *Connector) Exists(ctx context.Context, coll string, filter Filter) (ok bool, err error) {
	k, err := c.begin(ctx, "exists", coll, filter)
	if err != nil {
		return false, err
	}
	defer func() { k.end(err) }()

	f, err := normalizeFilter(filter)
	if err != nil {
		return false, err
	}
	err = k.coll.FindOne(k.ctx, f, options.FindOne().SetProjection(bson.M{idField: 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, opError("exists", coll, err)
	}
	return true, nil
}

// =============================================================================
// 写入
// =============================================================================

// InsertOne 插入文档并返回带 _id 的副本，入参不会被修改。
//
// 缺少 _id 时由客户端生成；已有 _id 必须是合法标识符。
// 违反唯一约束返回 *DuplicateKeyError，其余失败返回 *OperationError。
func (c *Connector) InsertOne(ctx context.Context, coll string, doc Document) (out Document, err error) {
	k, err := c.begin(ctx, "insert_one", coll, nil)
	if err != nil {
		return nil, err
	}
	defer func() { k.end(err) }()

	if doc == nil {
		return nil, invalid("document", "must not be nil")
	}
	out, err = withIdentifier(doc)
	if err != nil {
		return nil, err
	}

	res, err := k.coll.InsertOne(k.ctx, out)
	if err != nil {
		return nil, classifyWriteError("insert_one", coll, err)
	}
	if !res.Acknowledged {
		return nil, opError("insert_one", coll, ErrUnacknowledged)
	}
	return out, nil
}

// UpdateOne 按 _id 把其余字段以 $set 合并到目标文档，返回更新后的文档。
//
// _id 缺失或为空返回 *ValidationError；没有匹配的文档返回 *NotFoundError。
// 除 _id 外没有其他字段时不做写入，直接返回当前文档。
func (c *Connector) UpdateOne(ctx context.Context, coll string, doc Document) (out Document, err error) {
	k, err := c.begin(ctx, "update_one", coll, nil)
	if err != nil {
		return nil, err
	}
	defer func() { k.end(err) }()

	id, err := requireIdentifier(doc)
	if err != nil {
		return nil, err
	}
	k.info.Filter = bson.M{idField: id}

	set := make(bson.M, len(doc))
	for f, v := range doc {
		if f != idField {
			set[f] = v
		}
	}

	var res *mongo.SingleResult
	if len(set) == 0 {
		res = k.coll.FindOne(k.ctx, bson.M{idField: id})
	} else {
		res = k.coll.FindOneAndUpdate(k.ctx, bson.M{idField: id}, bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
	}
	err = res.Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Collection: coll, ID: id}
	}
	if err != nil {
		return nil, classifyWriteError("update_one", coll, err)
	}
	return out, nil
}

// DeleteOne 按 _id 删除一个文档。没有删除任何文档时返回 *NotFoundError。
func (c *Connector) DeleteOne(ctx context.Context, coll string, doc Document) (err error) {
	k, err := c.begin(ctx, "delete_one", coll, nil)
	if err != nil {
		return err
	}
	defer func() { k.end(err) }()

	id, err := requireIdentifier(doc)
	if err != nil {
		return err
	}
	k.info.Filter = bson.M{idField: id}

	res, err := k.coll.DeleteOne(k.ctx, bson.M{idField: id})
	if err != nil {
		return opError("delete_one", coll, err)
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{Collection: coll, ID: id}
	}
	return nil
}

// =============================================================================
// 辅助函数
// =============================================================================

// withIdentifier 返回带 ObjectID 类型 _id 的浅拷贝，缺少时生成新的标识符。
func withIdentifier(doc Document) (Document, error) {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	raw, ok := doc[idField]
	if !ok || raw == nil {
		out[idField] = bson.NewObjectID()
		return out, nil
	}
	id, err := ToIdentifier(raw)
	if err != nil {
		return nil, err
	}
	out[idField] = id
	return out, nil
}

// requireIdentifier 取出并转换 doc 的 _id，缺失或为空时返回 *ValidationError。
func requireIdentifier(doc Document) (bson.ObjectID, error) {
	raw, ok := doc[idField]
	if !ok || raw == nil || raw == "" {
		return bson.NilObjectID, invalid(idField, "required")
	}
	return ToIdentifier(raw)
}

// classifyWriteError 把写操作的驱动错误归类为 *DuplicateKeyError 或 *OperationError。
func classifyWriteError(op, coll string, err error) error {
	if in, ok := duplicateKeyFromError(err); ok {
		return newDuplicateKeyError(coll, in, err)
	}
	return opError(op, coll, err)
}
