package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
)

// stubScoreRepository はスコアと埋め込みをインメモリで保持するテスト用リポジトリ
type stubScoreRepository struct {
	mu         sync.Mutex
	scores     map[string]*JobScore
	embeddings map[uuid.UUID]*JobEmbedding
	embedSaves int
}

var _ Repository = (*stubScoreRepository)(nil)

func newStubScoreRepository() *stubScoreRepository {
	return &stubScoreRepository{
		scores:     make(map[string]*JobScore),
		embeddings: make(map[uuid.UUID]*JobEmbedding),
	}
}

func pairKey(jobID, profileID uuid.UUID) string {
	return jobID.String() + "/" + profileID.String()
}

func (r *stubScoreRepository) UpsertScore(_ context.Context, score *JobScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *score
	r.scores[pairKey(score.JobID, score.UserProfileID)] = &stored
	return nil
}

func (r *stubScoreRepository) GetScoreByPair(_ context.Context, jobID, profileID uuid.UUID) (mo.Option[*JobScore], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scores[pairKey(jobID, profileID)]; ok {
		return mo.Some(s), nil
	}
	return mo.None[*JobScore](), nil
}

func (r *stubScoreRepository) ListScoresByProfile(_ context.Context, profileID uuid.UUID) ([]*JobScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var scores []*JobScore
	for _, s := range r.scores {
		if s.UserProfileID == profileID {
			scores = append(scores, s)
		}
	}
	return scores, nil
}

func (r *stubScoreRepository) UpdateRanks(_ context.Context, ranks map[uuid.UUID]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scores {
		if rank, ok := ranks[s.ID]; ok {
			s.Rank = rank
		}
	}
	return nil
}

func (r *stubScoreRepository) GetJobEmbedding(_ context.Context, jobID uuid.UUID) (mo.Option[*JobEmbedding], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if emb, ok := r.embeddings[jobID]; ok {
		return mo.Some(emb), nil
	}
	return mo.None[*JobEmbedding](), nil
}

func (r *stubScoreRepository) UpsertJobEmbedding(_ context.Context, emb *JobEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[emb.JobID] = emb
	r.embedSaves++
	return nil
}

type stubJobSource struct {
	jobs []*ingestion.Job
}

func (s *stubJobSource) ListActiveJobs(_ context.Context) ([]*ingestion.Job, error) {
	return s.jobs, nil
}

type stubProfileSource struct {
	prof *profile.UserProfile
}

func (s *stubProfileSource) GetActive(_ context.Context) (*profile.UserProfile, error) {
	if s.prof == nil {
		return nil, profile.ErrProfileNotFound
	}
	return s.prof, nil
}

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return []float32{1, 0, 0}, nil
}

func (e *stubEmbedder) ModelName() string { return "stub-model" }

func activeJob(title string, skills []string, postedAt time.Time) *ingestion.Job {
	min, max := 90000, 120000
	return &ingestion.Job{
		ID:          uuid.New(),
		Title:       title,
		Company:     "Acme",
		Description: "desc " + title,
		SalaryMin:   &min,
		SalaryMax:   &max,
		Skills:      skills,
		Status:      ingestion.JobStatusActive,
		PostedAt:    &postedAt,
	}
}

func TestServiceScoreAllScoresAndRanks(t *testing.T) {
	repo := newStubScoreRepository()
	posted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	jobs := &stubJobSource{jobs: []*ingestion.Job{
		activeJob("Backend Engineer", []string{"Go", "PostgreSQL"}, posted),
		activeJob("Frontend Engineer", []string{"React", "TypeScript"}, posted),
	}}
	prof := testProfile()
	prof.ID = uuid.New()

	engine, err := NewEngine()
	require.NoError(t, err)
	svc := NewService(repo, jobs, &stubProfileSource{prof: prof}, engine, WithWorkerCount(2))

	stats, err := svc.ScoreAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalJobs)
	assert.Equal(t, 2, stats.Scored)
	assert.Zero(t, stats.Skipped)

	scores, err := repo.ListScoresByProfile(context.Background(), prof.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	// 全件に1始まりの順位が付く
	ranks := map[int]bool{}
	for _, s := range scores {
		assert.Greater(t, s.Rank, 0)
		ranks[s.Rank] = true
	}
	assert.True(t, ranks[1])
}

func TestServiceScoreAllSkipsUnscorableJobs(t *testing.T) {
	repo := newStubScoreRepository()
	posted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	unscorable := &ingestion.Job{
		ID:          uuid.New(),
		Title:       "Mystery Role",
		Company:     "Acme",
		Description: "n/a",
		Status:      ingestion.JobStatusActive,
	}
	jobs := &stubJobSource{jobs: []*ingestion.Job{
		activeJob("Backend Engineer", []string{"Go"}, posted),
		unscorable,
	}}

	// 判断材料を一切持たないプロファイル
	prof := &profile.UserProfile{ID: uuid.New(), Name: "Empty"}

	engine, err := NewEngine()
	require.NoError(t, err)
	svc := NewService(repo, jobs, &stubProfileSource{prof: prof}, engine)

	stats, err := svc.ScoreAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scored)
	assert.Equal(t, 1, stats.Skipped)
}

func TestServiceScoreAllRequiresActiveProfile(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	svc := NewService(newStubScoreRepository(), &stubJobSource{}, &stubProfileSource{}, engine)

	_, err = svc.ScoreAll(context.Background())
	assert.ErrorIs(t, err, profile.ErrProfileNotFound)
}

func TestServiceScoreAllReusesFreshEmbeddings(t *testing.T) {
	repo := newStubScoreRepository()
	posted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	job := activeJob("Backend Engineer", []string{"Go"}, posted)
	jobs := &stubJobSource{jobs: []*ingestion.Job{job}}

	prof := testProfile()
	prof.ID = uuid.New()
	prof.ResumeText = "resume text"

	embedder := &stubEmbedder{}
	engine, err := NewEngine()
	require.NoError(t, err)
	svc := NewService(repo, jobs, &stubProfileSource{prof: prof}, engine, WithEmbedder(embedder))

	_, err = svc.ScoreAll(context.Background())
	require.NoError(t, err)
	// プロファイル1回 + 求人1回
	assert.Equal(t, 2, embedder.calls)
	assert.Equal(t, 1, repo.embedSaves)

	// 説明文が変わらない限り求人側の埋め込みは再利用される
	_, err = svc.ScoreAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.calls)
	assert.Equal(t, 1, repo.embedSaves)

	// 説明文が変われば再計算される
	job.Description = "updated description"
	_, err = svc.ScoreAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, embedder.calls)
	assert.Equal(t, 2, repo.embedSaves)
}
