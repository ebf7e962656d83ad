package storageopt

import "sync/atomic"

// Counters 是 Connector 生命周期内的累计计数，跨多次 Connect 保留。零值可用。
type Counters struct {
	operations      atomic.Int64
	operationErrors atomic.Int64
	pings           atomic.Int64
	pingErrors      atomic.Int64
	slow            atomic.Int64
}

// Counts 是 Counters 的快照。
type Counts struct {
	Operations      int64
	OperationErrors int64
	Pings           int64
	PingErrors      int64
	SlowQueries     int64
}

func (c *Counters) RecordOperation(err error) {
	c.operations.Add(1)
	if err != nil {
		c.operationErrors.Add(1)
	}
}

func (c *Counters) RecordPing(err error) {
	c.pings.Add(1)
	if err != nil {
		c.pingErrors.Add(1)
	}
}

func (c *Counters) RecordSlow() { c.slow.Add(1) }

// Snapshot 逐项读取，各项之间不保证同一时刻。
func (c *Counters) Snapshot() Counts {
	return Counts{
		Operations:      c.operations.Load(),
		OperationErrors: c.operationErrors.Load(),
		Pings:           c.pings.Load(),
		PingErrors:      c.pingErrors.Load(),
		SlowQueries:     c.slow.Load(),
	}
}
