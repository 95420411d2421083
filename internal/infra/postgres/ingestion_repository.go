package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"

	"github.com/jinford/jobmatch/internal/core/ingestion"
)

// IngestionRepository は core/ingestion.Repository を実装する PostgreSQL リポジトリ。
type IngestionRepository struct {
	db DBTX
}

// NewIngestionRepository は新しい IngestionRepository を返す。
func NewIngestionRepository(db DBTX) *IngestionRepository {
	return &IngestionRepository{db: db}
}

var _ ingestion.Repository = (*IngestionRepository)(nil)

const rawJobColumns = `id, platform, url, payload, content_hash, scraped_at, created_at`

func (r *IngestionRepository) FindRawJobByURL(ctx context.Context, platform, url string) (mo.Option[*ingestion.RawJob], error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+rawJobColumns+` FROM raw_jobs WHERE platform = $1 AND url = $2`,
		platform, url,
	)
	return r.scanOptionalRawJob(row)
}

func (r *IngestionRepository) FindRawJobByContentHash(ctx context.Context, hash string) (mo.Option[*ingestion.RawJob], error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+rawJobColumns+` FROM raw_jobs WHERE content_hash = $1`,
		hash,
	)
	return r.scanOptionalRawJob(row)
}

func (r *IngestionRepository) CreateRawJob(ctx context.Context, raw *ingestion.RawJob) error {
	payload, err := payloadToJSON(raw.Payload)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO raw_jobs (id, platform, url, payload, content_hash, scraped_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		raw.ID, raw.Platform, raw.URL, payload, raw.ContentHash, raw.ScrapedAt, raw.CreatedAt,
	)
	if err != nil {
		// (platform, url) / content_hash の一意制約に敗れた場合は競合として通知する
		if isUniqueViolation(err) {
			return ingestion.ErrRawJobConflict
		}
		return fmt.Errorf("failed to insert raw job: %w", err)
	}
	return nil
}

func (r *IngestionRepository) ListRawJobs(ctx context.Context) ([]*ingestion.RawJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+rawJobColumns+` FROM raw_jobs ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list raw jobs: %w", err)
	}
	defer rows.Close()

	var raws []*ingestion.RawJob
	for rows.Next() {
		raw, err := scanRawJob(rows)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	return raws, rows.Err()
}

func (r *IngestionRepository) scanOptionalRawJob(row pgx.Row) (mo.Option[*ingestion.RawJob], error) {
	raw, err := scanRawJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*ingestion.RawJob](), nil
		}
		return mo.None[*ingestion.RawJob](), err
	}
	return mo.Some(raw), nil
}

func scanRawJob(row pgx.Row) (*ingestion.RawJob, error) {
	var raw ingestion.RawJob
	var payload []byte
	err := row.Scan(&raw.ID, &raw.Platform, &raw.URL, &payload, &raw.ContentHash, &raw.ScrapedAt, &raw.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan raw job: %w", err)
	}
	if raw.Payload, err = jsonToPayload(payload); err != nil {
		return nil, err
	}
	return &raw, nil
}

const jobColumns = `id, raw_job_id, title, company, location, location_type, description,
	salary_min, salary_max, salary_currency, salary_period, employment_type, experience_level,
	posted_at, platform, platform_url, skills, company_size, industry, status, needs_review,
	created_at, last_updated`

func (r *IngestionRepository) GetJobByRawJobID(ctx context.Context, rawJobID uuid.UUID) (mo.Option[*ingestion.Job], error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE raw_job_id = $1`,
		rawJobID,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*ingestion.Job](), nil
		}
		return mo.None[*ingestion.Job](), err
	}
	return mo.Some(job), nil
}

func (r *IngestionRepository) CreateJob(ctx context.Context, job *ingestion.Job) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO jobs (id, raw_job_id, title, company, location, location_type, description,
			salary_min, salary_max, salary_currency, salary_period, employment_type, experience_level,
			posted_at, platform, platform_url, skills, company_size, industry, status, needs_review,
			created_at, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		job.ID, job.RawJobID, job.Title, job.Company, job.Location, locTypeToText(job.LocType), job.Description,
		job.SalaryMin, job.SalaryMax, job.SalaryCurrency, job.SalaryPeriod, empTypeToText(job.EmpType), expLevelToText(job.ExpLevel),
		job.PostedAt, job.Platform, job.PlatformURL, job.Skills, job.CompanySize, job.Industry, string(job.Status), job.NeedsReview,
		job.CreatedAt, job.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (r *IngestionRepository) UpdateJob(ctx context.Context, job *ingestion.Job) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE jobs SET title = $2, company = $3, location = $4, location_type = $5, description = $6,
			salary_min = $7, salary_max = $8, salary_currency = $9, salary_period = $10,
			employment_type = $11, experience_level = $12, posted_at = $13, skills = $14,
			company_size = $15, industry = $16, status = $17, needs_review = $18, last_updated = $19
		 WHERE id = $1`,
		job.ID, job.Title, job.Company, job.Location, locTypeToText(job.LocType), job.Description,
		job.SalaryMin, job.SalaryMax, job.SalaryCurrency, job.SalaryPeriod,
		empTypeToText(job.EmpType), expLevelToText(job.ExpLevel), job.PostedAt, job.Skills,
		job.CompanySize, job.Industry, string(job.Status), job.NeedsReview, job.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

func (r *IngestionRepository) ListActiveJobs(ctx context.Context) ([]*ingestion.Job, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = $1 ORDER BY created_at`,
		string(ingestion.JobStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*ingestion.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*ingestion.Job, error) {
	var job ingestion.Job
	var locType, empType, expLevel, status *string
	err := row.Scan(
		&job.ID, &job.RawJobID, &job.Title, &job.Company, &job.Location, &locType, &job.Description,
		&job.SalaryMin, &job.SalaryMax, &job.SalaryCurrency, &job.SalaryPeriod, &empType, &expLevel,
		&job.PostedAt, &job.Platform, &job.PlatformURL, &job.Skills, &job.CompanySize, &job.Industry, &status, &job.NeedsReview,
		&job.CreatedAt, &job.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	job.LocType = textToLocType(locType)
	job.EmpType = textToEmpType(empType)
	job.ExpLevel = textToExpLevel(expLevel)
	if status != nil {
		job.Status = ingestion.JobStatus(*status)
	}
	return &job, nil
}

const searchRunColumns = `id, platform, query, location, status, results_count, new_jobs_count,
	duplicate_count, started_at, completed_at, error_message`

func (r *IngestionRepository) CreateSearchRun(ctx context.Context, run *ingestion.SearchRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO search_runs (id, platform, query, location, status, results_count, new_jobs_count,
			duplicate_count, started_at, completed_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.Platform, run.Query, run.Location, string(run.Status), run.ResultsCount, run.NewJobsCount,
		run.DuplicateCount, run.StartedAt, run.CompletedAt, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search run: %w", err)
	}
	return nil
}

func (r *IngestionRepository) CompleteSearchRun(ctx context.Context, id uuid.UUID, results, newJobs, duplicates int) error {
	return r.finishSearchRun(ctx, id, ingestion.SearchCompleted, results, newJobs, duplicates, nil)
}

func (r *IngestionRepository) FailSearchRun(ctx context.Context, id uuid.UUID, results, newJobs, duplicates int, errorMessage string) error {
	return r.finishSearchRun(ctx, id, ingestion.SearchFailed, results, newJobs, duplicates, &errorMessage)
}

func (r *IngestionRepository) finishSearchRun(ctx context.Context, id uuid.UUID, status ingestion.SearchStatus, results, newJobs, duplicates int, errorMessage *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE search_runs SET status = $2, results_count = $3, new_jobs_count = $4,
			duplicate_count = $5, completed_at = now(), error_message = $6
		 WHERE id = $1`,
		id, string(status), results, newJobs, duplicates, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to finish search run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("search run %s not found", id)
	}
	return nil
}

func (r *IngestionRepository) ListSearchRuns(ctx context.Context, limit int) ([]*ingestion.SearchRun, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+searchRunColumns+` FROM search_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list search runs: %w", err)
	}
	defer rows.Close()

	var runs []*ingestion.SearchRun
	for rows.Next() {
		var run ingestion.SearchRun
		var status string
		err := rows.Scan(
			&run.ID, &run.Platform, &run.Query, &run.Location, &status, &run.ResultsCount, &run.NewJobsCount,
			&run.DuplicateCount, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search run: %w", err)
		}
		run.Status = ingestion.SearchStatus(status)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
