// Package util 收纳与存储无关的小型基础设施。
//
// xpool 为慢查询异步通知等旁路回调提供有界队列与固定 worker。
package util
