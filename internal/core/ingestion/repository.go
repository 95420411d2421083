package ingestion

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// ErrRawJobConflict は RawJob の一意制約違反（並行admitの敗者側）を表す
var ErrRawJobConflict = errors.New("raw job conflicts with an existing record")

// Repository はインジェスト関連の全データアクセスを統合するインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// RawJob
	FindRawJobByURL(ctx context.Context, platform, url string) (mo.Option[*RawJob], error)
	FindRawJobByContentHash(ctx context.Context, hash string) (mo.Option[*RawJob], error)
	CreateRawJob(ctx context.Context, raw *RawJob) error
	ListRawJobs(ctx context.Context) ([]*RawJob, error)

	// Job
	GetJobByRawJobID(ctx context.Context, rawJobID uuid.UUID) (mo.Option[*Job], error)
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	ListActiveJobs(ctx context.Context) ([]*Job, error)

	// SearchRun
	CreateSearchRun(ctx context.Context, run *SearchRun) error
	CompleteSearchRun(ctx context.Context, id uuid.UUID, results, newJobs, duplicates int) error
	FailSearchRun(ctx context.Context, id uuid.UUID, results, newJobs, duplicates int, errorMessage string) error
	ListSearchRuns(ctx context.Context, limit int) ([]*SearchRun, error)
}
