// xmongoctl 是 xmongo Connector 的命令行客户端。
//
// 用法:
//
//	xmongoctl [全局选项] <命令> [命令参数]
//
// 配置来源按优先级从低到高：配置文件（--config，YAML/JSON）、
// .env 文件、XMONGO_* 环境变量、命令行参数。
//
//	mongo:
//	  uri: mongodb://localhost:27017
//	  database: app
//	  retry:
//	    max_attempts: 5
//	log:
//	  level: debug
//	  file: /var/log/xmongoctl.log
//
// 命令:
//
//	ping                          检查连接
//	find <coll>                   查询文档（--filter、--sort、--limit、--skip、--page）
//	count <coll>                  统计文档数
//	insert <coll> <json>          插入单个文档或文档数组
//	update <coll> <json>          按 _id 更新，或配合 --filter 批量更新
//	delete <coll>                 按 --id、--filter 或 --all 删除
//	index ensure|list|drop        索引管理
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（含批量插入部分失败）
//	2: 参数错误（含文档标识、过滤条件等输入校验失败）
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdocstore/pkg/storage/xmongo"
)

// 版本信息，通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr, connectStore)
	stop()
	os.Exit(code)
}

// run 执行命令并返回退出码。
func run(ctx context.Context, args []string, stdout, stderr io.Writer, open storeOpener) int {
	app := newApp(stdout, stderr, open)
	err := app.command().Run(ctx, args)
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(stderr, "usage error: %v\n", usage)
		return 2
	}
	if k := xmongo.KindOf(err); k == xmongo.KindValidation || k == xmongo.KindInvalidIdentifier {
		fmt.Fprintf(stderr, "invalid input: %v\n", err)
		return 2
	}
	if isCLIUsageError(err) {
		fmt.Fprintln(stderr, err)
		return 2
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

// exitError 表示输出已完成，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 表示命令参数错误。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// isCLIUsageError 识别 urfave/cli 自身的参数解析错误。
func isCLIUsageError(err error) bool {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return false
	}
	msg := err.Error()
	for _, prefix := range []string{
		"flag provided but not defined",
		"invalid value",
		"Required flag",
		"No help topic",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
