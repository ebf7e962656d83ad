package xmongo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omeyang/xdocstore/internal/storageopt"
	"github.com/omeyang/xdocstore/pkg/observability/xmetrics"
	"github.com/omeyang/xdocstore/pkg/resilience/xretry"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const mongoComponent = "xmongo"

// session 是一次成功连接的不可变快照。
// db 为 nil 表示已连接但尚未选择数据库。
type session struct {
	uri      string
	client   clientOperations
	native   *mongo.Client
	db       databaseOperations
	detector *storageopt.SlowQueryDetector[SlowQueryInfo]
}

// dialed 是一次拨号的产物。
type dialed struct {
	client clientOperations
	native *mongo.Client
}

// dialFunc 建立连接并确认可用，失败时不得遗留已打开的客户端。
type dialFunc func(ctx context.Context, uri string, extra []*options.ClientOptions) (dialed, error)

// Connector 管理到 MongoDB 的连接并提供文档操作。
//
// 零值不可用，请使用 New 创建。所有方法并发安全。
type Connector struct {
	opts *Options
	dial dialFunc

	sess atomic.Pointer[session]

	// lifecycleMu 串行化 Connect / Close / SelectDatabase，不阻塞普通操作。
	lifecycleMu sync.Mutex

	counters storageopt.Counters
}

// New 创建未连接的 Connector。
func New(opts ...Option) (*Connector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.ConnectRetry.Validate(); err != nil {
		return nil, &ValidationError{Field: "connect_retry", Reason: err.Error(), Err: err}
	}
	return &Connector{opts: o, dial: dialMongo}, nil
}

// dialMongo 是默认拨号实现：驱动连接后 Ping Primary，Ping 失败则断开。
func dialMongo(ctx context.Context, uri string, extra []*options.ClientOptions) (dialed, error) {
	clientOpts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(clientOpts...)
	if err != nil {
		return dialed{}, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return dialed{}, err
	}
	return dialed{client: &clientAdapter{client: client}, native: client}, nil
}

// newSlowQueryDetector 按 Options 创建慢查询检测器。
func newSlowQueryDetector(o *Options) (*storageopt.SlowQueryDetector[SlowQueryInfo], error) {
	return storageopt.NewSlowQueryDetector(storageopt.SlowQueryConfig[SlowQueryInfo]{
		Threshold: o.SlowQueryThreshold,
		Hook:      o.SlowQueryHook,
		AsyncHook: o.AsyncSlowQueryHook,
		Workers:   o.AsyncSlowQueryWorkers,
		QueueSize: o.AsyncSlowQueryQueueSize,
		Logger:    o.Logger,
	})
}

// =============================================================================
// 连接生命周期
// =============================================================================

// Connect 关闭已有连接后按重试策略建立新连接。
//
// 已有连接总是先被关闭，即使随后的参数校验失败。
// 成功后处于已连接状态，若指定了 WithDatabase 则同时选中该数据库。
// 重试耗尽时返回 *ConnectionError，携带 URI 与最后一次失败原因，Connector 保持未连接。
func (c *Connector) Connect(ctx context.Context, uri string, opts ...ConnectOption) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	// 旧连接的断开失败不影响新连接
	if old := c.sess.Swap(nil); old != nil {
		releaseCtx := ctx
		if releaseCtx == nil {
			releaseCtx = context.Background()
		}
		_ = c.release(releaseCtx, old)
	}

	if ctx == nil {
		return nilContext()
	}
	if uri == "" {
		return invalid("uri", "must not be empty")
	}

	var co ConnectOptions
	for _, opt := range opts {
		opt(&co)
	}
	policy := c.opts.ConnectRetry
	if co.Retry != nil {
		policy = *co.Retry
	}
	if err := policy.Validate(); err != nil {
		return &ValidationError{Field: "retry", Reason: err.Error(), Err: err}
	}

	detector, err := newSlowQueryDetector(c.opts)
	if err != nil {
		return &ValidationError{Field: "options", Reason: err.Error(), Err: err}
	}

	d, err := xretry.DoWithResult(ctx, policy, func(ctx context.Context) (dialed, error) {
		return c.dial(ctx, uri, co.Client)
	}, xretry.WithOnRetry(c.opts.RetryHook))
	if err != nil {
		detector.Close()
		return &ConnectionError{URI: uri, Err: err}
	}

	s := &session{uri: uri, client: d.client, native: d.native, detector: detector}
	if co.Database != "" {
		s.db = d.client.Database(co.Database)
	}
	c.sess.Store(s)
	return nil
}

// Close 断开连接。未连接时为空操作；无论断开是否成功，最终都处于未连接状态。
// nil ctx 视为 context.Background()。
func (c *Connector) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	s := c.sess.Swap(nil)
	if s == nil {
		return nil
	}
	return c.release(ctx, s)
}

func (c *Connector) release(ctx context.Context, s *session) error {
	if s.detector != nil {
		s.detector.Close()
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return opError("close", "", err)
	}
	return nil
}

// IsConnected 报告当前是否已连接，不做任何 I/O。
func (c *Connector) IsConnected() bool {
	return c.sess.Load() != nil
}

// SelectDatabase 切换当前数据库。未连接时返回 *ConnectionError。
func (c *Connector) SelectDatabase(name string) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	s := c.sess.Load()
	if s == nil {
		return &ConnectionError{Err: ErrNotConnected}
	}
	if name == "" {
		return invalid("database", "must not be empty")
	}

	next := *s
	next.db = s.client.Database(name)
	c.sess.Store(&next)
	return nil
}

// =============================================================================
// 逃生通道
// =============================================================================

// Client 返回驱动原生客户端。
func (c *Connector) Client() (*mongo.Client, error) {
	s := c.sess.Load()
	if s == nil {
		return nil, &ConnectionError{Err: ErrNotConnected}
	}
	return s.native, nil
}

// Database 返回当前数据库的原生句柄。
func (c *Connector) Database() (*mongo.Database, error) {
	s, err := c.database()
	if err != nil {
		return nil, err
	}
	return s.db.Native(), nil
}

// Collection 返回当前数据库中 name 集合的原生句柄。
func (c *Connector) Collection(name string) (*mongo.Collection, error) {
	s, err := c.database()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("collection", "must not be empty")
	}
	return s.db.Collection(name).Native(), nil
}

// database 返回已选中数据库的快照。
func (c *Connector) database() (*session, error) {
	s := c.sess.Load()
	if s == nil {
		return nil, &ConnectionError{Err: ErrNotConnected}
	}
	if s.db == nil {
		return nil, &ConnectionError{URI: s.uri, Err: ErrNoDatabase}
	}
	return s, nil
}

// =============================================================================
// 健康检查与统计
// =============================================================================

// Health 对 Primary 执行 Ping，超时由 WithHealthTimeout 控制。
func (c *Connector) Health(ctx context.Context) (err error) {
	if ctx == nil {
		return nilContext()
	}
	s := c.sess.Load()
	if s == nil {
		return &ConnectionError{Err: ErrNotConnected}
	}

	ctx, span := xmetrics.Start(ctx, c.opts.Observer, xmetrics.SpanOptions{
		Component: mongoComponent,
		Operation: "health",
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String("db.system", "mongodb"),
		},
	})
	defer func() {
		span.End(observation(err, false))
	}()

	ctx, cancel := storageopt.Bounded(ctx, c.opts.HealthTimeout)
	defer cancel()

	pingErr := s.client.Ping(ctx, readpref.Primary())
	c.counters.RecordPing(pingErr)
	if pingErr != nil {
		return &ConnectionError{URI: s.uri, Err: pingErr}
	}
	return nil
}

// Stats 返回统计信息快照。
func (c *Connector) Stats() Stats {
	n := c.counters.Snapshot()
	st := Stats{
		PingCount:       n.Pings,
		PingErrors:      n.PingErrors,
		SlowQueries:     n.SlowQueries,
		Operations:      n.Operations,
		OperationErrors: n.OperationErrors,
	}
	if s := c.sess.Load(); s != nil {
		st.Connected = true
		st.Pool = PoolStats{InUseConnections: s.client.NumberSessionsInProgress()}
	}
	return st
}

// =============================================================================
// 操作骨架
// =============================================================================

// call 是一次操作的上下文：入口快照、集合句柄与观测状态。
type call struct {
	c     *Connector
	s     *session
	ctx   context.Context
	coll  collectionOperations
	span  xmetrics.Span
	info  SlowQueryInfo
	start time.Time
}

// begin 校验连接状态与集合名并开始观测。
// 连接检查先于任何输入校验，失败时不产生跨度。
func (c *Connector) begin(ctx context.Context, op, collName string, filter any) (*call, error) {
	if ctx == nil {
		return nil, nilContext()
	}
	s, err := c.database()
	if err != nil {
		return nil, err
	}
	if collName == "" {
		return nil, invalid("collection", "must not be empty")
	}

	info := SlowQueryInfo{
		Database:   s.db.Name(),
		Collection: collName,
		Operation:  op,
		Filter:     filter,
	}
	ctx, span := xmetrics.Start(ctx, c.opts.Observer, xmetrics.SpanOptions{
		Component: mongoComponent,
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String("db.system", "mongodb"),
			xmetrics.String("db.name", info.Database),
			xmetrics.String("db.collection", collName),
		},
	})
	return &call{
		c:     c,
		s:     s,
		ctx:   ctx,
		coll:  s.db.Collection(collName),
		span:  span,
		info:  info,
		start: time.Now(),
	}, nil
}

// end 结束观测，更新计数并检测慢查询。
func (k *call) end(err error, attrs ...xmetrics.Attr) {
	k.info.Duration = time.Since(k.start)
	k.c.counters.RecordOperation(err)

	slow := k.s.detector != nil && k.s.detector.Observe(k.ctx, k.info, k.info.Duration)
	if slow {
		k.c.counters.RecordSlow()
		attrs = append(attrs, xmetrics.Int64("slow_threshold_ms", k.c.opts.SlowQueryThreshold.Milliseconds()))
	}
	r := observation(err, slow)
	r.Attrs = attrs
	k.span.End(r)
}

// observation 以错误分类作为指标的 outcome。
func observation(err error, slow bool) xmetrics.Result {
	r := xmetrics.Result{Err: err, Slow: slow}
	if err != nil {
		r.Class = KindOf(err).String()
	}
	return r
}

// String 便于在日志中输出 Connector 状态。
func (c *Connector) String() string {
	s := c.sess.Load()
	switch {
	case s == nil:
		return "xmongo.Connector(disconnected)"
	case s.db == nil:
		return fmt.Sprintf("xmongo.Connector(%s)", redactURI(s.uri))
	default:
		return fmt.Sprintf("xmongo.Connector(%s/%s)", redactURI(s.uri), s.db.Name())
	}
}
