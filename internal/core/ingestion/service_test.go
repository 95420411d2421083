package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/jobmatch/internal/core/ratelimit"
)

// stubGate は判定列をそのまま返すテスト用ゲート
type stubGate struct {
	decisions []ratelimit.Decision
	calls     int
}

func (g *stubGate) Acquire(platform, endpoint string) ratelimit.Decision {
	g.calls++
	if len(g.decisions) == 0 {
		return ratelimit.Decision{Allowed: true}
	}
	d := g.decisions[0]
	if len(g.decisions) > 1 {
		g.decisions = g.decisions[1:]
	}
	return d
}

func allowAll() *stubGate {
	return &stubGate{}
}

func newTestService(repo *stubRepository, gate Gate) *Service {
	return NewService(
		repo,
		gate,
		NewDedupStore(repo),
		NewNormalizer(),
		WithServiceSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
	)
}

func TestServiceRunRecordsCounts(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, allowAll())

	subs := []JobSubmission{
		submission("https://example.com/jobs/1", "Backend Engineer"),
		submission("https://example.com/jobs/2", "Frontend Engineer"),
		// 1件目と同一内容
		submission("https://example.com/jobs/3", "Backend Engineer"),
	}

	run, err := svc.Run(context.Background(), SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.NoError(t, err)

	assert.Equal(t, SearchCompleted, run.Status)
	assert.Equal(t, 3, run.ResultsCount)
	assert.Equal(t, 2, run.NewJobsCount)
	assert.Equal(t, 1, run.DuplicateCount)

	jobs, err := repo.ListActiveJobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestServiceRunDuplicatesAreNoOps(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, allowAll())
	ctx := context.Background()

	subs := []JobSubmission{submission("https://example.com/jobs/1", "Backend Engineer")}

	_, err := svc.Run(ctx, SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.NoError(t, err)

	// 同じバッチの再実行は全件重複で完了する
	run, err := svc.Run(ctx, SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.NoError(t, err)
	assert.Equal(t, SearchCompleted, run.Status)
	assert.Equal(t, 0, run.NewJobsCount)
	assert.Equal(t, 1, run.DuplicateCount)
	assert.Equal(t, 1, repo.rawJobCount())
}

func TestServiceRunQuotaDenialRetriesThenFails(t *testing.T) {
	repo := newStubRepository()
	denied := ratelimit.Decision{Allowed: false, RetryAfter: time.Millisecond}
	gate := &stubGate{decisions: []ratelimit.Decision{denied}}
	svc := newTestService(repo, gate)

	subs := []JobSubmission{submission("https://example.com/jobs/1", "Backend Engineer")}

	run, err := svc.Run(context.Background(), SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.ErrorIs(t, err, ErrQuotaExhausted)

	// 失敗しても SearchRun は部分カウント付きで failed として残る
	require.NotNil(t, run)
	assert.Equal(t, SearchFailed, run.Status)
	require.NotNil(t, run.ErrorMessage)
	assert.Equal(t, quotaMaxAttempts, gate.calls)

	runs, err := repo.ListSearchRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, SearchFailed, runs[0].Status)
}

func TestServiceRunQuotaDenialThenRecovery(t *testing.T) {
	repo := newStubRepository()
	gate := &stubGate{decisions: []ratelimit.Decision{
		{Allowed: false, RetryAfter: time.Millisecond},
		{Allowed: true},
	}}
	svc := newTestService(repo, gate)

	subs := []JobSubmission{submission("https://example.com/jobs/1", "Backend Engineer")}

	run, err := svc.Run(context.Background(), SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.NoError(t, err)
	assert.Equal(t, SearchCompleted, run.Status)
	assert.Equal(t, 1, run.NewJobsCount)
}

func TestServiceRunNoRunLeftPending(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, allowAll())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	subs := []JobSubmission{submission("https://example.com/jobs/1", "Backend Engineer")}
	_, err := svc.Run(ctx, SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	runs, err := repo.ListSearchRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEqual(t, SearchPending, runs[0].Status)
}

func TestServiceRenormalizeSkipsUnchanged(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, allowAll())
	ctx := context.Background()

	subs := []JobSubmission{submission("https://example.com/jobs/1", "Backend Engineer")}
	_, err := svc.Run(ctx, SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.NoError(t, err)

	// 生データが変わっていなければ何も更新されない
	updated, err := svc.Renormalize(ctx)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestServiceRenormalizeAppliesNewRules(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, allowAll())
	ctx := context.Background()

	subs := []JobSubmission{submission("https://example.com/jobs/1", "Backend Engineer")}
	_, err := svc.Run(ctx, SearchParams{Platform: "indeed", Query: "engineer"}, subs)
	require.NoError(t, err)

	// 正規化結果を手で崩して、再正規化が修復することを確認する
	jobs, err := repo.ListActiveJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	jobs[0].Title = "stale title"
	require.NoError(t, repo.UpdateJob(ctx, jobs[0]))

	updated, err := svc.Renormalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	jobs, err = repo.ListActiveJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", jobs[0].Title)
}
