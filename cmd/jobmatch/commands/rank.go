package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// RankListAction はアクティブプロファイルの求人ランキングを表示する
// コマンドのアクション
func RankListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	limit := cmd.Int("limit")
	explain := cmd.Bool("explain")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	prof, err := appCtx.Profiles.GetActive(ctx)
	if err != nil {
		return err
	}

	scores, err := appCtx.ScoringRepo.ListScoresByProfile(ctx, prof.ID)
	if err != nil {
		return err
	}

	if len(scores) == 0 {
		fmt.Println("no scores yet; run `jobmatch score run` first")
		return nil
	}

	for i, score := range scores {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Printf("#%d  job %s  total=%.1f  (%s)\n", score.Rank, score.JobID, score.TotalScore, score.ScoringVersion)
		if explain && score.Explanation != "" {
			fmt.Println(indent(score.Explanation))
		}
	}
	return nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
