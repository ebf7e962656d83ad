// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xmongo: MongoDB 文档存储 Connector，含连接重试、标识归一化、
//     批量写入的部分失败汇总与重复键诊断
package storage
