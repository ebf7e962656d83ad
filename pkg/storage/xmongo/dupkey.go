package xmongo

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// unknownField 是无法确定冲突字段时的占位名。
const unknownField = "unknown"

// 服务端用于唯一约束冲突的错误码。
var duplicateKeyCodes = map[int]struct{}{
	11000: {},
	11001: {},
	12582: {},
}

// duplicateKeyInput 是唯一约束冲突的统一输入。
// 驱动的各类错误只在本文件内被拆解，其余代码只看到这个结构。
type duplicateKeyInput struct {
	Code    int
	Message string
	// Raw 是服务端返回的错误文档，可能携带 keyValue / keyPattern。
	Raw bson.Raw
}

// duplicateKeyMeta 是错误文档中的结构化元数据。
type duplicateKeyMeta struct {
	KeyValue   bson.D `bson:"keyValue"`
	KeyPattern bson.D `bson:"keyPattern"`
}

func isDuplicateKeyCode(code int) bool {
	_, ok := duplicateKeyCodes[code]
	return ok
}

// duplicateKeyFromError 识别单文档写操作返回的唯一约束冲突。
func duplicateKeyFromError(err error) (duplicateKeyInput, bool) {
	if err == nil {
		return duplicateKeyInput{}, false
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if in, ok := duplicateKeyFromWriteError(e); ok {
				return in, true
			}
		}
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if in, ok := duplicateKeyFromWriteError(e.WriteError); ok {
				return in, true
			}
		}
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && isDuplicateKeyCode(int(ce.Code)) {
		return duplicateKeyInput{Code: int(ce.Code), Message: ce.Message, Raw: ce.Raw}, true
	}

	if mongo.IsDuplicateKeyError(err) {
		return duplicateKeyInput{Code: 11000, Message: err.Error()}, true
	}
	return duplicateKeyInput{}, false
}

// duplicateKeyFromWriteError 识别批量写入中单条写错误的唯一约束冲突。
func duplicateKeyFromWriteError(we mongo.WriteError) (duplicateKeyInput, bool) {
	if !isDuplicateKeyCode(we.Code) {
		return duplicateKeyInput{}, false
	}
	return duplicateKeyInput{Code: we.Code, Message: we.Message, Raw: we.Raw}, true
}

// newDuplicateKeyError 从统一输入构造 DuplicateKeyError，不会失败。
//
// 字段来源优先级：结构化 keyValue，其次解析错误文本，最后为 "unknown"。
func newDuplicateKeyError(coll string, in duplicateKeyInput, cause error) *DuplicateKeyError {
	field, value := keyFromMeta(in.Raw)
	if field == "" {
		field, value = keyFromMessage(in.Message)
	}
	if field == "" {
		field, value = unknownField, nil
	}
	return &DuplicateKeyError{Collection: coll, Field: field, Value: value, Err: cause}
}

func keyFromMeta(raw bson.Raw) (string, any) {
	if len(raw) == 0 {
		return "", nil
	}
	var meta duplicateKeyMeta
	if err := bson.Unmarshal(raw, &meta); err != nil {
		return "", nil
	}
	if len(meta.KeyValue) > 0 {
		return collapseKey(meta.KeyValue)
	}
	// 部分版本只返回 keyPattern，此时只能确定字段
	if len(meta.KeyPattern) > 0 {
		field, _ := collapseKey(meta.KeyPattern)
		return field, nil
	}
	return "", nil
}

// collapseKey 单字段返回 (字段, 值)，复合键返回 ("a,b", bson.D)。
func collapseKey(d bson.D) (string, any) {
	if len(d) == 1 {
		return d[0].Key, d[0].Value
	}
	names := make([]string, len(d))
	for i, e := range d {
		names[i] = e.Key
	}
	return strings.Join(names, ","), d
}

// =============================================================================
// 错误文本解析
// =============================================================================

var (
	// E11000 duplicate key error collection: db.users index: name_1 dup key: { name: "Alice" }
	// 旧版本：E11000 duplicate key error index: db.users.$name_1  dup key: { : "Alice" }
	indexNamePattern = regexp.MustCompile(`index:\s+(?:\S+\.\$)?(\S+)`)
	dupKeyPattern    = regexp.MustCompile(`dup key:\s*\{(.*)\}`)
)

// 索引名中表示方向或类型的片段。
var indexDirectionTokens = map[string]struct{}{
	"1": {}, "-1": {}, "text": {}, "hashed": {}, "2d": {}, "2dsphere": {},
}

// keyFromMessage 尽力从错误文本中提取冲突字段与值。
func keyFromMessage(msg string) (string, any) {
	var fields []string
	if m := indexNamePattern.FindStringSubmatch(msg); m != nil {
		fields = fieldsFromIndexName(m[1])
	}

	var keys []string
	var values []any
	if m := dupKeyPattern.FindStringSubmatch(msg); m != nil {
		keys, values = parseDupKeyClause(m[1])
	}

	if len(fields) == 0 {
		for _, k := range keys {
			if k != "" {
				fields = append(fields, k)
			}
		}
	}
	switch {
	case len(fields) == 0:
		return "", nil
	case len(fields) == 1:
		if len(values) > 0 {
			return fields[0], values[0]
		}
		return fields[0], nil
	default:
		if len(values) != len(fields) {
			return strings.Join(fields, ","), nil
		}
		d := make(bson.D, len(fields))
		for i, f := range fields {
			d[i] = bson.E{Key: f, Value: values[i]}
		}
		return strings.Join(fields, ","), d
	}
}

// fieldsFromIndexName 从默认索引名还原字段，如 "email_1_age_-1" -> [email age]。
func fieldsFromIndexName(name string) []string {
	if name == "_id_" {
		return []string{idField}
	}
	var fields []string
	var cur []string
	for _, tok := range strings.Split(name, "_") {
		if _, ok := indexDirectionTokens[tok]; ok && len(cur) > 0 {
			field := strings.Join(cur, "_")
			if field == "" {
				return nil
			}
			fields = append(fields, field)
			cur = cur[:0]
			continue
		}
		cur = append(cur, tok)
	}
	// 自定义索引名无法可靠还原
	if len(cur) > 0 {
		return nil
	}
	return fields
}

// parseDupKeyClause 解析 "name: \"Alice\", age: 30" 形式的键值列表。
func parseDupKeyClause(clause string) ([]string, []any) {
	var keys []string
	var values []any
	for _, part := range splitTopLevel(clause) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		keys = append(keys, strings.Trim(strings.TrimSpace(k), `"`))
		values = append(values, parseClauseValue(strings.TrimSpace(v)))
	}
	return keys, values
}

// splitTopLevel 按不在引号或括号内的逗号切分。
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseClauseValue(v string) any {
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		if s, err := strconv.Unquote(v); err == nil {
			return s
		}
		return v[1 : len(v)-1]
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return v
}
