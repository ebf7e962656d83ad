package xmongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// 删除不存在的索引或集合时服务端返回的错误码。
const (
	codeNamespaceNotFound = 26
	codeIndexNotFound     = 27
)

// EnsureIndex 在 field 上创建升序索引并返回索引名。索引已存在时为空操作。
func (c *Connector) EnsureIndex(ctx context.Context, coll, field string) (string, error) {
	if field == "" {
		return c.ensureIndex(ctx, "ensure_index", coll, nil, false)
	}
	return c.ensureIndex(ctx, "ensure_index", coll, bson.D{{Key: field, Value: 1}}, false)
}

// EnsureUniqueIndex 在 field 上创建升序唯一索引并返回索引名。
func (c *Connector) EnsureUniqueIndex(ctx context.Context, coll, field string) (string, error) {
	if field == "" {
		return c.ensureIndex(ctx, "ensure_unique_index", coll, nil, true)
	}
	return c.ensureIndex(ctx, "ensure_unique_index", coll, bson.D{{Key: field, Value: 1}}, true)
}

// EnsureCompoundIndex 按 keys 的顺序创建复合索引，例如
// bson.D{{Key: "tenant", Value: 1}, {Key: "created_at", Value: -1}}。
func (c *Connector) EnsureCompoundIndex(ctx context.Context, coll string, keys bson.D, unique bool) (string, error) {
	return c.ensureIndex(ctx, "ensure_compound_index", coll, keys, unique)
}

func (c *Connector) ensureIndex(ctx context.Context, op, coll string, keys bson.D, unique bool) (name string, err error) {
	k, err := c.begin(ctx, op, coll, nil)
	if err != nil {
		return "", err
	}
	defer func() { k.end(err) }()

	if len(keys) == 0 {
		return "", invalid("keys", "must not be empty")
	}
	for _, e := range keys {
		if e.Key == "" {
			return "", invalid("keys", "field name must not be empty")
		}
	}

	model := mongo.IndexModel{Keys: keys}
	if unique {
		model.Options = options.Index().SetUnique(true)
	}
	name, err = k.coll.Indexes().CreateOne(k.ctx, model)
	if err != nil {
		return "", opError(op, coll, err)
	}
	return name, nil
}

// ListIndexes 返回集合上全部索引的描述文档。
func (c *Connector) ListIndexes(ctx context.Context, coll string) (specs []Document, err error) {
	k, err := c.begin(ctx, "list_indexes", coll, nil)
	if err != nil {
		return nil, err
	}
	defer func() { k.end(err) }()

	cursor, err := k.coll.Indexes().List(k.ctx)
	if err != nil {
		return nil, opError("list_indexes", coll, err)
	}
	if err = cursor.All(k.ctx, &specs); err != nil {
		return nil, opError("list_indexes", coll, err)
	}
	if specs == nil {
		specs = []Document{}
	}
	return specs, nil
}

// DropIndex 按名称删除索引。索引或集合不存在时视为成功。
func (c *Connector) DropIndex(ctx context.Context, coll, name string) (err error) {
	k, err := c.begin(ctx, "drop_index", coll, nil)
	if err != nil {
		return err
	}
	defer func() { k.end(err) }()

	if name == "" {
		return invalid("name", "must not be empty")
	}
	err = k.coll.Indexes().DropOne(k.ctx, name)
	if err == nil || isMissingIndex(err) {
		return nil
	}
	return opError("drop_index", coll, err)
}

func isMissingIndex(err error) bool {
	var ce mongo.CommandError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == codeIndexNotFound || ce.Code == codeNamespaceNotFound
}
