package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdocstore/pkg/observability/xlog"
	"github.com/omeyang/xdocstore/pkg/storage/xmongo"
)

func (a *app) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "ping",
			Usage:  "检查连接",
			Action: a.cmdPing,
		},
		{
			Name:      "find",
			Usage:     "查询文档",
			ArgsUsage: "<collection>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Extended JSON 过滤条件"},
				&cli.StringFlag{Name: "sort", Usage: "排序，如 name,-created_at"},
				&cli.Int64Flag{Name: "limit", Aliases: []string{"l"}, Usage: "最多返回条数"},
				&cli.Int64Flag{Name: "skip", Usage: "跳过条数"},
				&cli.Int64Flag{Name: "page", Usage: "页码（从 1 开始），与 --page-size 一起使用"},
				&cli.Int64Flag{Name: "page-size", Usage: "每页条数", Value: 20},
			},
			Action: a.cmdFind,
		},
		{
			Name:      "count",
			Usage:     "统计文档数",
			ArgsUsage: "<collection>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Extended JSON 过滤条件"},
			},
			Action: a.cmdCount,
		},
		{
			Name:      "insert",
			Usage:     "插入单个文档或文档数组",
			ArgsUsage: "<collection> <document|array>",
			Action:    a.cmdInsert,
		},
		{
			Name:      "update",
			Usage:     "按 _id 更新单个文档；指定 --filter 时批量更新",
			ArgsUsage: "<collection> <document|update>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "批量更新的过滤条件"},
			},
			Action: a.cmdUpdate,
		},
		{
			Name:      "delete",
			Usage:     "删除文档",
			ArgsUsage: "<collection>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Usage: "按标识删除单个文档"},
				&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "按过滤条件删除"},
				&cli.BoolFlag{Name: "all", Usage: "删除集合中的全部文档"},
			},
			Action: a.cmdDelete,
		},
		{
			Name:  "index",
			Usage: "索引管理",
			Commands: []*cli.Command{
				{
					Name:         "ensure",
					Usage:        "创建索引，多个字段时创建复合索引，字段前缀 - 表示降序",
					ArgsUsage:    "<collection> <field> [field...]",
					StopOnNthArg: &ensureFlagArgs,
					Flags: []cli.Flag{
						&cli.BoolFlag{Name: "unique", Aliases: []string{"u"}, Usage: "唯一索引"},
					},
					Action: a.cmdIndexEnsure,
				},
				{
					Name:      "list",
					Usage:     "列出索引",
					ArgsUsage: "<collection>",
					Action:    a.cmdIndexList,
				},
				{
					Name:      "drop",
					Usage:     "删除索引，不存在时视为成功",
					ArgsUsage: "<collection> <name>",
					Action:    a.cmdIndexDrop,
				},
			},
		},
	}
}

// ensureFlagArgs 让 index ensure 在集合名之后停止解析 flag，-created_at 按字段处理。
var ensureFlagArgs = 1

// positional 校验位置参数个数，至少 lo 个，hi 为 -1 表示不限。
func positional(cmd *cli.Command, lo, hi int) ([]string, error) {
	got := cmd.Args().Slice()
	if len(got) < lo || (hi >= 0 && len(got) > hi) {
		return nil, usagef("%s: expected arguments %s", cmd.Name, cmd.ArgsUsage)
	}
	return got, nil
}

func (a *app) cmdPing(ctx context.Context, cmd *cli.Command) error {
	if _, err := positional(cmd, 0, 0); err != nil {
		return err
	}
	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	if err := s.Health(ctx); err != nil {
		return err
	}
	st := s.Stats()
	a.out.line("ok (pings=%d, sessions=%d)", st.PingCount, st.Pool.InUseConnections)
	return nil
}

func (a *app) cmdFind(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 1, 1)
	if err != nil {
		return err
	}
	filter, err := parseDocument(cmd.String("filter"))
	if err != nil {
		return err
	}
	sort, err := parseSort(cmd.String("sort"))
	if err != nil {
		return err
	}

	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	if cmd.IsSet("page") {
		page, err := s.FindPage(ctx, pos[0], filter, xmongo.PageOptions{
			Page:     cmd.Int64("page"),
			PageSize: cmd.Int64("page-size"),
			Sort:     sort,
		})
		if err != nil {
			return err
		}
		if err := a.out.docs(page.Data); err != nil {
			return err
		}
		a.logger.Info(ctx, "page",
			xlog.Collection(pos[0]),
			xlog.Count(page.Total),
			slog.Int64("page", page.Page),
			slog.Int64("total_pages", page.TotalPages),
		)
		return nil
	}

	docs, err := s.FindMany(ctx, pos[0], filter, xmongo.QueryOptions{
		Limit: cmd.Int64("limit"),
		Skip:  cmd.Int64("skip"),
		Sort:  sort,
	})
	if err != nil {
		return err
	}
	return a.out.docs(docs)
}

func (a *app) cmdCount(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 1, 1)
	if err != nil {
		return err
	}
	filter, err := parseDocument(cmd.String("filter"))
	if err != nil {
		return err
	}
	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	n, err := s.Count(ctx, pos[0], filter)
	if err != nil {
		return err
	}
	a.out.line("%d", n)
	return nil
}

// cmdInsert 对数组输入走 CreateMany，部分失败时逐条报告并以退出码 1 结束。
func (a *app) cmdInsert(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 2, 2)
	if err != nil {
		return err
	}
	docs, many, err := parseDocuments(pos[1])
	if err != nil {
		return err
	}
	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	if !many {
		doc, err := s.InsertOne(ctx, pos[0], docs[0])
		if err != nil {
			return err
		}
		return a.out.doc(doc)
	}

	res, err := s.CreateMany(ctx, pos[0], docs)
	if err != nil {
		return err
	}
	if err := a.out.docs(res.Inserted); err != nil {
		return err
	}
	for _, f := range res.Failed {
		a.logger.Error(ctx, "insert failed",
			xlog.Collection(pos[0]),
			slog.Int64("index", int64(f.Index)),
			xlog.Err(f.Err),
		)
	}
	if len(res.Failed) > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func (a *app) cmdUpdate(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 2, 2)
	if err != nil {
		return err
	}
	doc, err := parseDocument(pos[1])
	if err != nil {
		return err
	}
	if doc == nil {
		return usagef("update: document is required")
	}
	var filter xmongo.Filter
	if cmd.IsSet("filter") {
		if filter, err = parseDocument(cmd.String("filter")); err != nil {
			return err
		}
	}

	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	if filter != nil {
		n, err := s.UpdateMany(ctx, pos[0], filter, doc)
		if err != nil {
			return err
		}
		a.out.line("%d", n)
		return nil
	}
	updated, err := s.UpdateOne(ctx, pos[0], doc)
	if err != nil {
		return err
	}
	return a.out.doc(updated)
}

func (a *app) cmdDelete(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 1, 1)
	if err != nil {
		return err
	}
	modes := 0
	for _, name := range []string{"id", "filter", "all"} {
		if cmd.IsSet(name) {
			modes++
		}
	}
	if modes != 1 {
		return usagef("delete: exactly one of --id, --filter or --all is required")
	}
	var filter xmongo.Filter
	if cmd.IsSet("filter") {
		if filter, err = parseDocument(cmd.String("filter")); err != nil {
			return err
		}
	}

	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	var n int64
	switch {
	case cmd.IsSet("id"):
		if err := s.DeleteOne(ctx, pos[0], xmongo.Document{"_id": cmd.String("id")}); err != nil {
			return err
		}
		n = 1
	case cmd.Bool("all"):
		n, err = s.DeleteAll(ctx, pos[0])
	case cmd.IsSet("all"):
		return usagef("delete: --all=false deletes nothing")
	default:
		n, err = s.DeleteMany(ctx, pos[0], filter)
	}
	if err != nil {
		return err
	}
	a.out.line("%d", n)
	return nil
}

func (a *app) cmdIndexEnsure(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 2, -1)
	if err != nil {
		return err
	}
	keys, err := parseSort(strings.Join(pos[1:], ","))
	if err != nil {
		return err
	}
	unique := cmd.Bool("unique")

	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	var name string
	switch {
	case len(keys) > 1 || keys[0].Value == -1:
		name, err = s.EnsureCompoundIndex(ctx, pos[0], keys, unique)
	case unique:
		name, err = s.EnsureUniqueIndex(ctx, pos[0], keys[0].Key)
	default:
		name, err = s.EnsureIndex(ctx, pos[0], keys[0].Key)
	}
	if err != nil {
		return err
	}
	a.out.line("%s", name)
	return nil
}

func (a *app) cmdIndexList(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 1, 1)
	if err != nil {
		return err
	}
	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	specs, err := s.ListIndexes(ctx, pos[0])
	if err != nil {
		return err
	}
	return a.out.docs(specs)
}

func (a *app) cmdIndexDrop(ctx context.Context, cmd *cli.Command) error {
	pos, err := positional(cmd, 2, 2)
	if err != nil {
		return err
	}
	ctx, cancel, s, err := a.connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer cancel()

	return s.DropIndex(ctx, pos[0], pos[1])
}
