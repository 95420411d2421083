package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RunsListAction は検索実行履歴を表示するコマンドのアクション
func RunsListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	limit := cmd.Int("limit")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	runs, err := appCtx.IngestionRepo.ListSearchRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no search runs recorded")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %-10s %-9s results=%d new=%d dup=%d  %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Platform,
			run.Status,
			run.ResultsCount,
			run.NewJobsCount,
			run.DuplicateCount,
			run.Query,
		)
		if run.ErrorMessage != nil {
			fmt.Printf("    error: %s\n", *run.ErrorMessage)
		}
	}
	return nil
}
