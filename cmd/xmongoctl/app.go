package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/omeyang/xdocstore/pkg/observability/xlog"
	"github.com/omeyang/xdocstore/pkg/observability/xmetrics"
	"github.com/omeyang/xdocstore/pkg/storage/xmongo"
)

// defaultTimeout 是单条命令（含连接重试）的默认时限。
const defaultTimeout = 30 * time.Second

// store 是命令用到的 Connector 能力。
type store interface {
	Health(ctx context.Context) error
	Stats() xmongo.Stats
	Close(ctx context.Context) error

	FindMany(ctx context.Context, coll string, filter xmongo.Filter, opts xmongo.QueryOptions) ([]xmongo.Document, error)
	FindPage(ctx context.Context, coll string, filter xmongo.Filter, opts xmongo.PageOptions) (*xmongo.PageResult, error)
	Count(ctx context.Context, coll string, filter xmongo.Filter) (int64, error)
	InsertOne(ctx context.Context, coll string, doc xmongo.Document) (xmongo.Document, error)
	CreateMany(ctx context.Context, coll string, docs []xmongo.Document) (*xmongo.BulkCreateResult, error)
	UpdateOne(ctx context.Context, coll string, doc xmongo.Document) (xmongo.Document, error)
	UpdateMany(ctx context.Context, coll string, filter xmongo.Filter, update xmongo.Document) (int64, error)
	DeleteOne(ctx context.Context, coll string, doc xmongo.Document) error
	DeleteMany(ctx context.Context, coll string, filter xmongo.Filter) (int64, error)
	DeleteAll(ctx context.Context, coll string) (int64, error)

	EnsureIndex(ctx context.Context, coll, field string) (string, error)
	EnsureUniqueIndex(ctx context.Context, coll, field string) (string, error)
	EnsureCompoundIndex(ctx context.Context, coll string, keys bson.D, unique bool) (string, error)
	ListIndexes(ctx context.Context, coll string) ([]xmongo.Document, error)
	DropIndex(ctx context.Context, coll, name string) error
}

var _ store = (*xmongo.Connector)(nil)

// storeOpener 按配置建立连接，测试中替换为内存实现。
type storeOpener func(ctx context.Context, cfg xmongo.Config, logger xlog.Logger) (store, error)

// connectStore 创建 Connector，把重试与慢查询事件写入日志，并按配置连接。
func connectStore(ctx context.Context, cfg xmongo.Config, logger xlog.Logger) (store, error) {
	observer, err := xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xmongoctl"))
	if err != nil {
		return nil, err
	}
	c, err := xmongo.New(cfg.Options(
		xmongo.WithObserver(observer),
		xmongo.WithLogger(logger),
		xmongo.WithRetryHook(func(attempt int, err error) {
			logger.Warn(ctx, "connect attempt failed", xlog.Attempt(attempt), xlog.Err(err))
		}),
		xmongo.WithSlowQueryHook(func(ctx context.Context, info xmongo.SlowQueryInfo) {
			logger.Warn(ctx, "slow query",
				xlog.Database(info.Database),
				xlog.Collection(info.Collection),
				xlog.Operation(info.Operation),
				xlog.Duration(info.Duration),
			)
		}),
	)...)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx, cfg.URI, cfg.ConnectOptions()...); err != nil {
		return nil, err
	}
	logger.Debug(ctx, "connected", slog.String("target", c.String()))
	return c, nil
}

// app 持有一次命令执行的状态，由根命令的 Before 初始化、After 释放。
type app struct {
	stdout, stderr io.Writer
	open           storeOpener

	cfg     appConfig
	logger  xlog.LoggerWithLevel
	closeFn func() error
	store   store
	out     printer
}

func newApp(stdout, stderr io.Writer, open storeOpener) *app {
	return &app{stdout: stdout, stderr: stderr, open: open}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "xmongoctl",
		Usage:     "MongoDB 文档存储命令行客户端",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "配置文件（YAML/JSON）"},
			&cli.StringFlag{Name: "env-file", Usage: "环境变量文件，默认读取当前目录的 .env（若存在）"},
			&cli.StringFlag{Name: "uri", Usage: "连接串，覆盖配置与 XMONGO_URI"},
			&cli.StringFlag{Name: "database", Aliases: []string{"d"}, Usage: "数据库名"},
			&cli.IntFlag{Name: "retries", Usage: "连接尝试次数"},
			&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "命令超时", Value: defaultTimeout},
			&cli.StringFlag{Name: "log-level", Usage: "日志级别 debug/info/warn/error"},
			&cli.StringFlag{Name: "log-format", Usage: "日志格式 text/json"},
			&cli.StringFlag{Name: "log-file", Usage: "日志文件，按大小轮转"},
			&cli.BoolFlag{Name: "canonical", Usage: "以 canonical Extended JSON 输出"},
		},
		Before:         a.before,
		After:          a.after,
		Commands:       a.commands(),
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

// before 加载配置并构建日志。连接延迟到子命令第一次需要时建立。
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := loadConfig(configSources{File: cmd.String("config"), EnvFile: cmd.String("env-file")})
	if err != nil {
		return ctx, err
	}
	if cmd.IsSet("uri") {
		cfg.Mongo.URI = cmd.String("uri")
	}
	if cmd.IsSet("database") {
		cfg.Mongo.Database = cmd.String("database")
	}
	if cmd.IsSet("retries") {
		cfg.Mongo.Retry.MaxAttempts = cmd.Int("retries")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-file") {
		cfg.Log.File = cmd.String("log-file")
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = "mongodb://localhost:27017"
	}
	if err := cfg.Mongo.Validate(); err != nil {
		return ctx, usagef("%v", err)
	}

	b := xlog.FromConfig(cfg.Log).SetAttrs(xlog.Component("xmongoctl"))
	if cfg.Log.File == "" {
		b.SetOutput(a.stderr)
	}
	logger, closeFn, err := b.Build()
	if err != nil {
		return ctx, usagef("%v", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closeFn = closeFn
	a.out = printer{w: a.stdout, canonical: cmd.Bool("canonical")}
	logger.Debug(ctx, "config loaded",
		slog.String("config", cmd.String("config")),
		xlog.Database(cfg.Mongo.Database),
		slog.Int("max_attempts", cfg.Mongo.RetryPolicy().MaxAttempts),
	)
	return ctx, nil
}

func (a *app) after(ctx context.Context, _ *cli.Command) error {
	if a.store != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.store.Close(closeCtx); err != nil && a.logger != nil {
			a.logger.Warn(ctx, "close failed", xlog.Err(err))
		}
		a.store = nil
	}
	if a.closeFn != nil {
		return a.closeFn()
	}
	return nil
}

// connect 返回已连接的 store，并给 ctx 加上命令超时。
func (a *app) connect(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc, store, error) {
	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	if a.store == nil {
		s, err := a.open(ctx, a.cfg.Mongo, a.logger)
		if err != nil {
			cancel()
			return ctx, nil, nil, err
		}
		a.store = s
	}
	return ctx, cancel, a.store, nil
}
