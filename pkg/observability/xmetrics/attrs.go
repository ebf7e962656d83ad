package xmetrics

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

func String(key, value string) Attr { return Attr{Key: key, Value: value} }

func Bool(key string, value bool) Attr { return Attr{Key: key, Value: value} }

func Int(key string, value int) Attr { return Attr{Key: key, Value: value} }

func Int64(key string, value int64) Attr { return Attr{Key: key, Value: value} }

// otelAttrs 转换属性，跳过空 key 与 nil 值。
func otelAttrs(dst []attribute.KeyValue, attrs []Attr) []attribute.KeyValue {
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		dst = append(dst, a.keyValue())
	}
	return dst
}

func (a Attr) keyValue() attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case fmt.Stringer:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}
