package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jinford/jobmatch/cmd/jobmatch/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "jobmatch",
		Usage: "求人情報の収集・重複排除とプロファイル適合度スコアリングシステム",
		Commands: []*cli.Command{
			{
				Name:  "profile",
				Usage: "プロファイル管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "create",
						Usage: "プロファイルを作成",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "name",
								Usage:    "氏名",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "email",
								Usage: "メールアドレス",
							},
							&cli.StringFlag{
								Name:  "skills",
								Usage: "スキル（カンマ区切り）",
							},
							&cli.IntFlag{
								Name:  "years",
								Usage: "経験年数",
								Value: -1,
							},
							&cli.StringFlag{
								Name:  "level",
								Usage: "経験レベル（junior/mid/senior/lead/executive）",
							},
							&cli.IntFlag{
								Name:  "salary-min",
								Usage: "希望年収の下限",
							},
							&cli.IntFlag{
								Name:  "salary-max",
								Usage: "希望年収の上限",
							},
							&cli.StringFlag{
								Name:  "currency",
								Usage: "希望年収の通貨",
								Value: "USD",
							},
							&cli.StringFlag{
								Name:  "location",
								Usage: "希望勤務地",
							},
							&cli.StringFlag{
								Name:  "remote",
								Usage: "リモート希望（remote_only/hybrid/onsite/flexible）",
							},
							&cli.BoolFlag{
								Name:  "relocate",
								Usage: "転居可",
							},
							&cli.StringFlag{
								Name:  "company-sizes",
								Usage: "希望企業規模（カンマ区切り）",
							},
							&cli.StringFlag{
								Name:  "industries",
								Usage: "希望業界（カンマ区切り）",
							},
							&cli.StringFlag{
								Name:  "resume",
								Usage: "レジュメ本文のファイルパス",
							},
							&cli.BoolFlag{
								Name:  "activate",
								Usage: "作成後にアクティブ化する",
							},
						},
						Action: commands.ProfileCreateAction,
					},
					{
						Name:  "activate",
						Usage: "プロファイルをアクティブ化",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "id",
								Usage:    "プロファイルID",
								Required: true,
							},
						},
						Action: commands.ProfileActivateAction,
					},
					{
						Name:   "show",
						Usage:  "アクティブプロファイルを表示",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.ProfileShowAction,
					},
				},
			},
			{
				Name:  "ingest",
				Usage: "求人インジェストコマンド",
				Commands: []*cli.Command{
					{
						Name:  "run",
						Usage: "投稿JSONファイルを1バッチとして取り込む",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "file",
								Usage:    "投稿JSONファイルのパス",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "platform",
								Usage:    "プラットフォーム名（indeed/linkedin/glassdoorなど）",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "query",
								Usage:    "検索クエリ",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "location",
								Usage: "検索対象の勤務地",
							},
						},
						Action: commands.IngestRunAction,
					},
				},
			},
			{
				Name:  "jobs",
				Usage: "求人レコード管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "renormalize",
						Usage:  "保存済みの全求人を最新ルールで再正規化",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.JobsRenormalizeAction,
					},
				},
			},
			{
				Name:  "score",
				Usage: "スコアリングコマンド",
				Commands: []*cli.Command{
					{
						Name:   "run",
						Usage:  "全アクティブ求人をスコアリングして順位付け",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.ScoreRunAction,
					},
				},
			},
			{
				Name:  "rank",
				Usage: "ランキング表示コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "求人ランキングを表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "表示件数",
								Value: 20,
							},
							&cli.BoolFlag{
								Name:  "explain",
								Usage: "コンポーネントごとの根拠を表示",
							},
						},
						Action: commands.RankListAction,
					},
				},
			},
			{
				Name:  "runs",
				Usage: "検索実行履歴コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "検索実行履歴を表示",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "limit",
								Usage: "表示件数",
								Value: 20,
							},
						},
						Action: commands.RunsListAction,
					},
				},
			},
			{
				Name:  "scheduler",
				Usage: "定期インジェストコマンド",
				Commands: []*cli.Command{
					{
						Name:   "start",
						Usage:  "ドロップディレクトリの定期取り込みを開始",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.SchedulerStartAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}
