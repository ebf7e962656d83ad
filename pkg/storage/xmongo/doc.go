// Package xmongo 提供面向 MongoDB 的 Connector：连接生命周期、标识符归一化、
// CRUD 与批量操作、索引管理，以及统一的错误分类。
//
// # 连接生命周期
//
// Connector 是显式构造的值，每个应用根持有一个，通过参数传递给使用方。
// 状态只有两种：未连接与已连接，仅由 Connect 和 Close 改变。
//
//	c, err := xmongo.New(xmongo.WithSlowQueryThreshold(200 * time.Millisecond))
//	if err != nil { ... }
//	err = c.Connect(ctx, "mongodb://localhost:27017",
//	    xmongo.WithDatabase("app"),
//	    xmongo.WithConnectRetry(xretry.Policy{MaxAttempts: 5, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}),
//	)
//	defer c.Close(context.Background())
//
// Connect 总是先关闭已有连接再拨号，拨号（驱动连接 + Primary Ping）按 xretry.Policy 重试。
// 重试耗尽时返回 *ConnectionError，Connector 保持未连接。
//
// 连接状态（客户端、已选数据库）是一个不可变快照，经 atomic.Pointer 整体替换。
// 每个操作在入口读取一次快照；与 Close 并发的操作可能以 Connection 或
// OperationFailed 失败，但不会看到半初始化的状态。
//
// # 标识符
//
// _id 可以是 bson.ObjectID、ID（NativeID / RawID）或 24 位十六进制字符串。
// 所有入口在访问服务端之前统一转换，格式错误返回 *InvalidIdentifierError。
// 过滤条件中的 _id（直接值或 $eq/$ne/$gt/$gte/$lt/$lte/$in/$nin）同样会被转换。
//
// # 错误分类
//
// 每个公开操作要么成功，要么返回以下之一（均可用 errors.Is 匹配哨兵，KindOf 取分类）：
//
//   - *ConnectionError：未连接、未选择数据库、连接重试耗尽
//   - *ValidationError：输入不合法、DeleteMany 空过滤条件、CreateMany 全部失败
//   - *InvalidIdentifierError：标识符格式错误（同时匹配 ErrValidation）
//   - *DuplicateKeyError：违反唯一约束，Field 无法确定时为 "unknown"
//   - *NotFoundError：UpdateOne / DeleteOne 的目标不存在
//   - *OperationError：其余存储层失败，保留原始错误
//
// 读取未命中不是错误：FindOne 返回 (nil, false, nil)。
//
// # 批量写入
//
// CreateMany 使用无序 InsertMany 分批写入，_id 在客户端分配，
// 每条输入恰好出现在 Inserted 或 Failed 之一。全部失败时返回 *ValidationError。
//
// # 观测
//
// 每个操作产生一个 xmetrics 跨度；超过慢查询阈值时触发同步或异步钩子。
// 本包自身不写日志，重试与慢查询信息通过 WithRetryHook / WithSlowQueryHook 交给调用方。
//
// # 逃生通道
//
// Client / Database / Collection 返回驱动原生句柄，经由它们执行的操作不进入统计与慢查询检测。
package xmongo

import "go.mongodb.org/mongo-driver/v2/bson"

// idField 是文档标识符字段名。
const idField = "_id"

// Document 是无模式文档。
type Document = bson.M

// Filter 是查询过滤条件。
type Filter = bson.M
