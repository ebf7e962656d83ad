package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/omeyang/xdocstore/pkg/storage/xmongo"
)

// parseDocument 解析一个 Extended JSON 对象（relaxed 或 canonical）。空串返回 nil。
func parseDocument(s string) (xmongo.Document, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var doc xmongo.Document
	if err := bson.UnmarshalExtJSON([]byte(s), false, &doc); err != nil {
		return nil, usagef("invalid document %q: %v", s, err)
	}
	return doc, nil
}

// parseDocuments 接受单个对象或对象数组，返回值的第二项表示输入是否为数组。
func parseDocuments(s string) ([]xmongo.Document, bool, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		doc, err := parseDocument(s)
		if err != nil {
			return nil, false, err
		}
		if doc == nil {
			return nil, false, usagef("document is required")
		}
		return []xmongo.Document{doc}, false, nil
	}

	// Extended JSON 顶层必须是文档，数组包一层再解析
	var wrapper struct {
		Docs []xmongo.Document `bson:"docs"`
	}
	if err := bson.UnmarshalExtJSON([]byte(`{"docs":`+s+`}`), false, &wrapper); err != nil {
		return nil, true, usagef("invalid document array: %v", err)
	}
	return wrapper.Docs, true, nil
}

// parseSort 解析 "name,-created_at" 形式的排序，"-" 前缀表示降序。
func parseSort(s string) (bson.D, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var keys bson.D
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		order := 1
		if strings.HasPrefix(part, "-") {
			order = -1
			part = part[1:]
		} else if strings.HasPrefix(part, "+") {
			part = part[1:]
		}
		if part == "" {
			return nil, usagef("invalid sort %q", s)
		}
		keys = append(keys, bson.E{Key: part, Value: order})
	}
	return keys, nil
}

// printer 把文档输出为每行一个的 Extended JSON。
type printer struct {
	w         io.Writer
	canonical bool
}

func (p printer) doc(doc any) error {
	data, err := bson.MarshalExtJSON(doc, p.canonical, false)
	if err != nil {
		return fmt.Errorf("xmongoctl: encode document: %w", err)
	}
	data = append(bytes.TrimSpace(data), '\n')
	_, err = p.w.Write(data)
	return err
}

func (p printer) docs(docs []xmongo.Document) error {
	for _, d := range docs {
		if err := p.doc(d); err != nil {
			return err
		}
	}
	return nil
}

func (p printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
