package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
)

// SchedulerStartAction は投稿ドロップディレクトリを定期的に取り込む
// スケジューラを起動するコマンドのアクション
func SchedulerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config.Scheduler
	logger := appCtx.Logger

	c := cron.New()
	_, err = c.AddFunc(cfg.CronSpec, func() {
		sweepDropDir(ctx, appCtx, logger)
	})
	if err != nil {
		return fmt.Errorf("cronスケジュールの登録に失敗: %w", err)
	}

	c.Start()
	logger.Info("インジェストスケジューラを開始", "spec", cfg.CronSpec, "dropDir", cfg.DropDir)

	// 起動直後にも1回スイープし、最初のtickを待たずに取り込む
	go sweepDropDir(ctx, appCtx, logger)

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("インジェストスケジューラを停止")
	return nil
}

// sweepDropDir はドロップディレクトリ内の投稿JSONファイルを順に取り込み、
// 処理済みファイルに .done を付けて再取り込みを防ぐ
func sweepDropDir(ctx context.Context, appCtx *AppContext, logger *slog.Logger) {
	cfg := appCtx.Config.Scheduler

	entries, err := os.ReadDir(cfg.DropDir)
	if err != nil {
		logger.Error("ドロップディレクトリの読み取りに失敗", "dir", cfg.DropDir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return
		}

		path := filepath.Join(cfg.DropDir, entry.Name())
		query := strings.TrimSuffix(entry.Name(), ".json")

		run, err := ingestFile(ctx, appCtx, path, cfg.Platform, query, "")
		if err != nil {
			logger.Error("スイープ取り込みに失敗", "file", path, "error", err)
			continue
		}

		logger.Info("スイープ取り込みが完了",
			"file", path,
			"runID", run.ID,
			"new", run.NewJobsCount,
			"duplicates", run.DuplicateCount,
		)

		if err := os.Rename(path, path+".done"); err != nil {
			logger.Warn("処理済みマークに失敗", "file", path, "error", err)
		}
	}
}
