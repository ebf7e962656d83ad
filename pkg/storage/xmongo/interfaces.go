package xmongo

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// =============================================================================
// 内部接口定义 - 用于依赖注入和测试
// =============================================================================

// clientOperations 定义客户端级别操作接口。
type clientOperations interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
	NumberSessionsInProgress() int
	Database(name string) databaseOperations
}

// databaseOperations 定义数据库级别操作接口。
type databaseOperations interface {
	Name() string
	Collection(name string) collectionOperations
	// Native 返回底层句柄；测试替身返回 nil。
	Native() *mongo.Database
}

// collectionOperations 定义集合级别操作接口。
type collectionOperations interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter any, opts ...options.Lister[options.CountOptions]) (int64, error)
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
	FindOneAndUpdate(ctx context.Context, filter, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) *mongo.SingleResult
	UpdateMany(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateManyOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...options.Lister[options.DeleteManyOptions]) (*mongo.DeleteResult, error)
	Indexes() indexOperations
	Name() string
	// Native 返回底层句柄；测试替身返回 nil。
	Native() *mongo.Collection
}

// indexOperations 定义索引操作接口。mongo.IndexView 直接实现此接口。
type indexOperations interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
	List(ctx context.Context, opts ...options.Lister[options.ListIndexesOptions]) (*mongo.Cursor, error)
	DropOne(ctx context.Context, name string, opts ...options.Lister[options.DropIndexesOptions]) error
}

// =============================================================================
// 适配器 - 将驱动类型适配为内部接口
// =============================================================================

type clientAdapter struct {
	client *mongo.Client
}

func (a *clientAdapter) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return a.client.Ping(ctx, rp)
}

func (a *clientAdapter) Disconnect(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

func (a *clientAdapter) NumberSessionsInProgress() int {
	return a.client.NumberSessionsInProgress()
}

func (a *clientAdapter) Database(name string) databaseOperations {
	return &databaseAdapter{db: a.client.Database(name)}
}

type databaseAdapter struct {
	db *mongo.Database
}

func (a *databaseAdapter) Name() string { return a.db.Name() }

func (a *databaseAdapter) Collection(name string) collectionOperations {
	return &collectionAdapter{coll: a.db.Collection(name)}
}

func (a *databaseAdapter) Native() *mongo.Database { return a.db }

// collectionAdapter 将 *mongo.Collection 适配为 collectionOperations 接口。
type collectionAdapter struct {
	coll *mongo.Collection
}

func (a *collectionAdapter) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult {
	return a.coll.FindOne(ctx, filter, opts...)
}

func (a *collectionAdapter) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	return a.coll.Find(ctx, filter, opts...)
}

func (a *collectionAdapter) CountDocuments(ctx context.Context, filter any, opts ...options.Lister[options.CountOptions]) (int64, error) {
	return a.coll.CountDocuments(ctx, filter, opts...)
}

func (a *collectionAdapter) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	return a.coll.InsertOne(ctx, document, opts...)
}

func (a *collectionAdapter) InsertMany(ctx context.Context, documents []any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error) {
	return a.coll.InsertMany(ctx, documents, opts...)
}

func (a *collectionAdapter) FindOneAndUpdate(ctx context.Context, filter, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) *mongo.SingleResult {
	return a.coll.FindOneAndUpdate(ctx, filter, update, opts...)
}

func (a *collectionAdapter) UpdateMany(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateManyOptions]) (*mongo.UpdateResult, error) {
	return a.coll.UpdateMany(ctx, filter, update, opts...)
}

func (a *collectionAdapter) DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	return a.coll.DeleteOne(ctx, filter, opts...)
}

func (a *collectionAdapter) DeleteMany(ctx context.Context, filter any, opts ...options.Lister[options.DeleteManyOptions]) (*mongo.DeleteResult, error) {
	return a.coll.DeleteMany(ctx, filter, opts...)
}

func (a *collectionAdapter) Indexes() indexOperations {
	return a.coll.Indexes()
}

func (a *collectionAdapter) Name() string { return a.coll.Name() }

func (a *collectionAdapter) Native() *mongo.Collection { return a.coll }

var (
	_ clientOperations     = (*clientAdapter)(nil)
	_ databaseOperations   = (*databaseAdapter)(nil)
	_ collectionOperations = (*collectionAdapter)(nil)
	_ indexOperations      = mongo.IndexView{}
)
