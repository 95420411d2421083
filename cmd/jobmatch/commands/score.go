package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// ScoreRunAction は全アクティブ求人のスコアリングと順位付けを実行する
// コマンドのアクション
func ScoreRunAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Scoring.ScoreAll(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("scored %d of %d job(s)\n", stats.Scored, stats.TotalJobs)
	if stats.Skipped > 0 {
		fmt.Printf("  skipped (insufficient data): %d\n", stats.Skipped)
	}
	if stats.Failed > 0 {
		fmt.Printf("  failed: %d\n", stats.Failed)
	}
	if stats.EmbeddingFailures > 0 {
		fmt.Printf("  embedding failures: %d\n", stats.EmbeddingFailures)
	}
	return nil
}
