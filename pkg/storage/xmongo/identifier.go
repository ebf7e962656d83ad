package xmongo

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// identifierLen 是十六进制标识符的固定长度。
const identifierLen = 24

// ID 是标识符的两种来源：已解析的 ObjectID，或尚未校验的字符串。
// 在 API 边界通过 Resolve 统一转换一次。
type ID struct {
	oid    bson.ObjectID
	raw    string
	native bool
}

// NativeID 包装已解析的 ObjectID。
func NativeID(oid bson.ObjectID) ID {
	return ID{oid: oid, native: true}
}

// RawID 包装来自外部的字符串（如 URL 路径参数）。
func RawID(s string) ID {
	return ID{raw: s}
}

// IsNative 报告是否为 NativeID。
func (id ID) IsNative() bool { return id.native }

// Resolve 返回对应的 ObjectID。
func (id ID) Resolve() (bson.ObjectID, error) {
	if id.native {
		return id.oid, nil
	}
	return parseHexIdentifier(id.raw)
}

// String 返回十六进制形式；Raw 变体原样返回。
func (id ID) String() string {
	if id.native {
		return id.oid.Hex()
	}
	return id.raw
}

// ToIdentifier 把 v 转换为 ObjectID。
//
// 接受 bson.ObjectID、非 nil 的 *bson.ObjectID、ID，以及恰好 24 位的十六进制字符串。
// 其余输入返回 *InvalidIdentifierError。
func ToIdentifier(v any) (bson.ObjectID, error) {
	switch x := v.(type) {
	case bson.ObjectID:
		return x, nil
	case *bson.ObjectID:
		if x != nil {
			return *x, nil
		}
	case ID:
		return x.Resolve()
	case string:
		return parseHexIdentifier(x)
	}
	return bson.NilObjectID, &InvalidIdentifierError{Value: v}
}

// IsValidIdentifier 与 ToIdentifier 的接受规则一致，但只返回布尔值。
func IsValidIdentifier(v any) bool {
	_, err := ToIdentifier(v)
	return err == nil
}

func parseHexIdentifier(s string) (bson.ObjectID, error) {
	if len(s) != identifierLen {
		return bson.NilObjectID, &InvalidIdentifierError{Value: s}
	}
	oid, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.NilObjectID, &InvalidIdentifierError{Value: s}
	}
	return oid, nil
}

// =============================================================================
// 过滤条件归一化
// =============================================================================

// 对 _id 做归一化的比较运算符。
var scalarIDOperators = map[string]struct{}{
	"$eq": {}, "$ne": {}, "$gt": {}, "$gte": {}, "$lt": {}, "$lte": {},
}

// 对 _id 做逐元素归一化的数组运算符。
var arrayIDOperators = map[string]struct{}{
	"$in": {}, "$nin": {},
}

// normalizeFilter 复制 filter 并把其中的 _id 条件转换为 ObjectID。
// nil 返回空过滤条件。
func normalizeFilter(filter Filter) (Filter, error) {
	out := make(Filter, len(filter))
	for k, v := range filter {
		out[k] = v
	}
	raw, ok := out[idField]
	if !ok {
		return out, nil
	}
	v, err := normalizeIDCondition(raw)
	if err != nil {
		return nil, err
	}
	out[idField] = v
	return out, nil
}

func normalizeIDCondition(v any) (any, error) {
	switch cond := v.(type) {
	case bson.M:
		return normalizeOperatorMap(cond)
	case map[string]any:
		return normalizeOperatorMap(cond)
	case bson.D:
		out := make(bson.D, 0, len(cond))
		for _, e := range cond {
			nv, err := normalizeOperator(e.Key, e.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, bson.E{Key: e.Key, Value: nv})
		}
		return out, nil
	default:
		return ToIdentifier(v)
	}
}

func normalizeOperatorMap(cond map[string]any) (bson.M, error) {
	out := make(bson.M, len(cond))
	for op, arg := range cond {
		nv, err := normalizeOperator(op, arg)
		if err != nil {
			return nil, err
		}
		out[op] = nv
	}
	return out, nil
}

func normalizeOperator(op string, arg any) (any, error) {
	if _, ok := scalarIDOperators[op]; ok {
		return ToIdentifier(arg)
	}
	if _, ok := arrayIDOperators[op]; ok {
		return normalizeIDList(arg)
	}
	// $exists 等与标识符格式无关的运算符原样保留
	return arg, nil
}

func normalizeIDList(arg any) (bson.A, error) {
	var items []any
	switch list := arg.(type) {
	case bson.A:
		items = list
	case []any:
		items = list
	case []string:
		items = make([]any, len(list))
		for i, s := range list {
			items[i] = s
		}
	case []bson.ObjectID:
		items = make([]any, len(list))
		for i, oid := range list {
			items[i] = oid
		}
	case []ID:
		items = make([]any, len(list))
		for i, id := range list {
			items[i] = id
		}
	default:
		return nil, &InvalidIdentifierError{Value: arg}
	}

	out := make(bson.A, len(items))
	for i, item := range items {
		oid, err := ToIdentifier(item)
		if err != nil {
			return nil, err
		}
		out[i] = oid
	}
	return out, nil
}
