package xmongo

// =============================================================================
// 统计信息
// =============================================================================

// Stats 包含 Connector 的统计信息。
// 计数器在 Connector 生命周期内累计，不随重连清零。
type Stats struct {
	// PingCount 健康检查次数。
	PingCount int64

	// PingErrors 健康检查失败次数。
	PingErrors int64

	// SlowQueries 慢查询次数。
	SlowQueries int64

	// Operations 经过 Connector 的操作次数（不含 Health）。
	Operations int64

	// OperationErrors 返回错误的操作次数。
	OperationErrors int64

	// Connected 当前是否已连接。
	Connected bool

	// Pool 连接池状态，未连接时为零值。
	Pool PoolStats
}

// PoolStats 连接池状态信息。
//
// MongoDB driver v2 不直接暴露连接池明细。需要时可查询服务端
// serverStatus.connections，或通过驱动的 PoolMonitor 事件自行统计。
type PoolStats struct {
	// InUseConnections 活跃会话数，取自 mongo.Client.NumberSessionsInProgress()。
	InUseConnections int
}
