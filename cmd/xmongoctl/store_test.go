package main

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/omeyang/xdocstore/pkg/storage/xmongo"
)

// memStore 记录调用并返回预设结果。
type memStore struct {
	mu     sync.Mutex
	calls  []string
	closed bool

	docs     []xmongo.Document
	count    int64
	page     *xmongo.PageResult
	bulk     *xmongo.BulkCreateResult
	affected int64
	indexes  []xmongo.Document
	err      error

	lastFilter xmongo.Filter
	lastQuery  xmongo.QueryOptions
	lastPage   xmongo.PageOptions
	lastDoc    xmongo.Document
	lastDocs   []xmongo.Document
	lastKeys   bson.D
	lastUnique bool
}

func (m *memStore) record(format string, args ...any) {
	m.mu.Lock()
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

func (m *memStore) Health(context.Context) error {
	m.record("Health")
	return m.err
}

func (m *memStore) Stats() xmongo.Stats {
	return xmongo.Stats{PingCount: 1, Connected: true}
}

func (m *memStore) Close(context.Context) error {
	m.closed = true
	return nil
}

func (m *memStore) FindMany(_ context.Context, coll string, filter xmongo.Filter, opts xmongo.QueryOptions) ([]xmongo.Document, error) {
	m.record("FindMany %s", coll)
	m.lastFilter, m.lastQuery = filter, opts
	return m.docs, m.err
}

func (m *memStore) FindPage(_ context.Context, coll string, filter xmongo.Filter, opts xmongo.PageOptions) (*xmongo.PageResult, error) {
	m.record("FindPage %s", coll)
	m.lastFilter, m.lastPage = filter, opts
	return m.page, m.err
}

func (m *memStore) Count(_ context.Context, coll string, filter xmongo.Filter) (int64, error) {
	m.record("Count %s", coll)
	m.lastFilter = filter
	return m.count, m.err
}

func (m *memStore) InsertOne(_ context.Context, coll string, doc xmongo.Document) (xmongo.Document, error) {
	m.record("InsertOne %s", coll)
	m.lastDoc = doc
	if m.err != nil {
		return nil, m.err
	}
	out := xmongo.Document{"_id": "507f1f77bcf86cd799439011"}
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) CreateMany(_ context.Context, coll string, docs []xmongo.Document) (*xmongo.BulkCreateResult, error) {
	m.record("CreateMany %s", coll)
	m.lastDocs = docs
	return m.bulk, m.err
}

func (m *memStore) UpdateOne(_ context.Context, coll string, doc xmongo.Document) (xmongo.Document, error) {
	m.record("UpdateOne %s", coll)
	m.lastDoc = doc
	return doc, m.err
}

func (m *memStore) UpdateMany(_ context.Context, coll string, filter xmongo.Filter, update xmongo.Document) (int64, error) {
	m.record("UpdateMany %s", coll)
	m.lastFilter, m.lastDoc = filter, update
	return m.affected, m.err
}

func (m *memStore) DeleteOne(_ context.Context, coll string, doc xmongo.Document) error {
	m.record("DeleteOne %s", coll)
	m.lastDoc = doc
	return m.err
}

func (m *memStore) DeleteMany(_ context.Context, coll string, filter xmongo.Filter) (int64, error) {
	m.record("DeleteMany %s", coll)
	m.lastFilter = filter
	return m.affected, m.err
}

func (m *memStore) DeleteAll(_ context.Context, coll string) (int64, error) {
	m.record("DeleteAll %s", coll)
	return m.affected, m.err
}

func (m *memStore) EnsureIndex(_ context.Context, coll, field string) (string, error) {
	m.record("EnsureIndex %s %s", coll, field)
	return field + "_1", m.err
}

func (m *memStore) EnsureUniqueIndex(_ context.Context, coll, field string) (string, error) {
	m.record("EnsureUniqueIndex %s %s", coll, field)
	return field + "_1", m.err
}

func (m *memStore) EnsureCompoundIndex(_ context.Context, coll string, keys bson.D, unique bool) (string, error) {
	m.record("EnsureCompoundIndex %s", coll)
	m.lastKeys, m.lastUnique = keys, unique
	return "compound", m.err
}

func (m *memStore) ListIndexes(_ context.Context, coll string) ([]xmongo.Document, error) {
	m.record("ListIndexes %s", coll)
	return m.indexes, m.err
}

func (m *memStore) DropIndex(_ context.Context, coll, name string) error {
	m.record("DropIndex %s %s", coll, name)
	return m.err
}
