package ingestion

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// stubRepository はインメモリで一意制約を模倣するテスト用リポジトリ
type stubRepository struct {
	mu         sync.Mutex
	rawsByURL  map[string]*RawJob
	rawsByHash map[string]*RawJob
	jobs       map[uuid.UUID]*Job
	runs       map[uuid.UUID]*SearchRun
	runOrder   []uuid.UUID
}

var _ Repository = (*stubRepository)(nil)

func newStubRepository() *stubRepository {
	return &stubRepository{
		rawsByURL:  make(map[string]*RawJob),
		rawsByHash: make(map[string]*RawJob),
		jobs:       make(map[uuid.UUID]*Job),
		runs:       make(map[uuid.UUID]*SearchRun),
	}
}

func urlKey(platform, url string) string {
	return platform + "\x00" + url
}

func (r *stubRepository) FindRawJobByURL(_ context.Context, platform, url string) (mo.Option[*RawJob], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if raw, ok := r.rawsByURL[urlKey(platform, url)]; ok {
		return mo.Some(raw), nil
	}
	return mo.None[*RawJob](), nil
}

func (r *stubRepository) FindRawJobByContentHash(_ context.Context, hash string) (mo.Option[*RawJob], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if raw, ok := r.rawsByHash[hash]; ok {
		return mo.Some(raw), nil
	}
	return mo.None[*RawJob](), nil
}

func (r *stubRepository) CreateRawJob(_ context.Context, raw *RawJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := urlKey(raw.Platform, raw.URL)
	if _, ok := r.rawsByURL[key]; ok {
		return ErrRawJobConflict
	}
	if _, ok := r.rawsByHash[raw.ContentHash]; ok {
		return ErrRawJobConflict
	}
	r.rawsByURL[key] = raw
	r.rawsByHash[raw.ContentHash] = raw
	return nil
}

func (r *stubRepository) ListRawJobs(_ context.Context) ([]*RawJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raws := make([]*RawJob, 0, len(r.rawsByHash))
	for _, raw := range r.rawsByHash {
		raws = append(raws, raw)
	}
	return raws, nil
}

func (r *stubRepository) GetJobByRawJobID(_ context.Context, rawJobID uuid.UUID) (mo.Option[*Job], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range r.jobs {
		if job.RawJobID != nil && *job.RawJobID == rawJobID {
			return mo.Some(job), nil
		}
	}
	return mo.None[*Job](), nil
}

func (r *stubRepository) CreateJob(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *stubRepository) UpdateJob(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

func (r *stubRepository) ListActiveJobs(_ context.Context) ([]*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if job.Status == JobStatusActive {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (r *stubRepository) CreateSearchRun(_ context.Context, run *SearchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *run
	r.runs[run.ID] = &stored
	r.runOrder = append(r.runOrder, run.ID)
	return nil
}

func (r *stubRepository) CompleteSearchRun(_ context.Context, id uuid.UUID, results, newJobs, duplicates int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.Status = SearchCompleted
	run.ResultsCount = results
	run.NewJobsCount = newJobs
	run.DuplicateCount = duplicates
	return nil
}

func (r *stubRepository) FailSearchRun(_ context.Context, id uuid.UUID, results, newJobs, duplicates int, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run := r.runs[id]
	run.Status = SearchFailed
	run.ResultsCount = results
	run.NewJobsCount = newJobs
	run.DuplicateCount = duplicates
	run.ErrorMessage = &errorMessage
	return nil
}

func (r *stubRepository) ListSearchRuns(_ context.Context, limit int) ([]*SearchRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := make([]*SearchRun, 0, len(r.runOrder))
	for i := len(r.runOrder) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, r.runs[r.runOrder[i]])
	}
	return runs, nil
}

func (r *stubRepository) rawJobCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rawsByHash)
}
