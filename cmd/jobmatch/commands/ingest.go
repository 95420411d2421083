package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jinford/jobmatch/internal/core/ingestion"
)

// submissionDoc はスクレイパーが書き出す投稿JSONドキュメントの1要素
type submissionDoc struct {
	Platform  string         `json:"platform"`
	URL       string         `json:"url"`
	Payload   map[string]any `json:"payload"`
	ScrapedAt time.Time      `json:"scraped_at"`
}

// IngestRunAction は投稿JSONファイルを1バッチとして取り込むコマンドのアクション
func IngestRunAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	file := cmd.String("file")
	platform := cmd.String("platform")
	query := cmd.String("query")
	location := cmd.String("location")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	run, err := ingestFile(ctx, appCtx, file, platform, query, location)
	if err != nil {
		return err
	}

	fmt.Printf("search run %s: %s\n", run.ID, run.Status)
	fmt.Printf("  results:    %d\n", run.ResultsCount)
	fmt.Printf("  new jobs:   %d\n", run.NewJobsCount)
	fmt.Printf("  duplicates: %d\n", run.DuplicateCount)
	return nil
}

// ingestFile は投稿JSONファイルを読み込んでインジェストサービスへ渡す
func ingestFile(ctx context.Context, appCtx *AppContext, path, platform, query, location string) (*ingestion.SearchRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("投稿ファイルの読み込みに失敗: %w", err)
	}

	var docs []submissionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("投稿ファイルの解析に失敗: %w", err)
	}

	submissions := make([]ingestion.JobSubmission, 0, len(docs))
	for _, doc := range docs {
		p := doc.Platform
		if p == "" {
			p = platform
		}
		submissions = append(submissions, ingestion.JobSubmission{
			Platform:  p,
			URL:       doc.URL,
			Payload:   doc.Payload,
			ScrapedAt: doc.ScrapedAt,
		})
	}

	params := ingestion.SearchParams{
		Platform: platform,
		Query:    query,
	}
	if location != "" {
		params.Location = &location
	}

	slog.Info("インジェストを開始", "file", path, "submissions", len(submissions))
	return appCtx.Ingestion.Run(ctx, params, submissions)
}

// JobsRenormalizeAction は保存済みの全求人を再正規化するコマンドのアクション
func JobsRenormalizeAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	updated, err := appCtx.Ingestion.Renormalize(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("renormalized %d job(s)\n", updated)
	return nil
}
