package xmongo

import "context"

// FindOneAs 与 FindOne 相同，但把结果解码为 T。未命中返回 T 的零值与 false。
//
//	type User struct {
//	    ID   bson.ObjectID `bson:"_id"`
//	    Name string        `bson:"name"`
//	}
//	u, ok, err := xmongo.FindOneAs[User](ctx, c, "users", xmongo.Filter{"name": "Alice"})
func FindOneAs[T any](ctx context.Context, c *Connector, coll string, filter Filter) (T, bool, error) {
	var out T
	found, err := c.findOneInto(ctx, "find_one", coll, filter, &out)
	if err != nil || !found {
		var zero T
		return zero, false, err
	}
	return out, true, nil
}

// FindManyAs 与 FindMany 相同，但把结果解码为 []T。无匹配时返回空切片。
func FindManyAs[T any](ctx context.Context, c *Connector, coll string, filter Filter, opts QueryOptions) ([]T, error) {
	var out []T
	if err := c.findManyInto(ctx, "find_many", coll, filter, opts, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
