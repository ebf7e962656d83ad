// Package storageopt 是 pkg/storage 下各 Connector 共用的内部工具：
// 分页计算、带上限的健康检查 context、慢查询检测与累计计数。
package storageopt
