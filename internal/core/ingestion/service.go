package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jinford/jobmatch/internal/core/ratelimit"
)

// DefaultEndpoint はレート制限のエンドポイントキー省略時の値
const DefaultEndpoint = "search"

// quotaMaxAttempts はクォータ拒否時の再試行回数上限
// RetryAfter に従って待機してもなお拒否が続く場合はバッチを失敗させる
const quotaMaxAttempts = 3

// ErrQuotaExhausted はリトライ後もクォータ拒否が続いた場合のエラー
var ErrQuotaExhausted = errors.New("platform quota exhausted after retries")

// Gate はインジェストを律速するレートリミッタのインターフェース
type Gate interface {
	Acquire(platform, endpoint string) ratelimit.Decision
}

// SearchParams は1回のスクレイプバッチの検索条件
type SearchParams struct {
	Platform string
	Query    string
	Location *string
	Endpoint string
}

// Service はインジェストのユースケースを提供する
// レート制限 → 重複排除 → 正規化 → 永続化の一連の流れと SearchRun の記録を担う
type Service struct {
	repo       Repository
	gate       Gate
	dedup      *DedupStore
	normalizer *Normalizer
	logger     *slog.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

type serviceOptions struct {
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithServiceLogger は Service にロガーを設定する
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithServiceClock は現在時刻の取得方法を上書きする（テスト用）
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// WithServiceSleep は待機処理を上書きする（テスト用）
func WithServiceSleep(sleep func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(o *serviceOptions) {
		o.sleep = sleep
	}
}

// NewService は新しい Service を作成する
func NewService(repo Repository, gate Gate, dedup *DedupStore, normalizer *Normalizer, opts ...ServiceOption) *Service {
	options := serviceOptions{
		logger: slog.Default(),
		now:    time.Now,
		sleep:  sleepWithContext,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Service{
		repo:       repo,
		gate:       gate,
		dedup:      dedup,
		normalizer: normalizer,
		logger:     options.logger,
		now:        options.now,
		sleep:      options.sleep,
	}
}

// Run は投稿データ一式を1バッチとして処理する
// 途中で失敗してもそれまでに受理した RawJob / Job はロールバックされず、
// SearchRun には部分的なカウントとエラーが記録される
func (s *Service) Run(ctx context.Context, params SearchParams, submissions []JobSubmission) (*SearchRun, error) {
	if params.Endpoint == "" {
		params.Endpoint = DefaultEndpoint
	}

	run := &SearchRun{
		ID:        uuid.New(),
		Platform:  params.Platform,
		Query:     params.Query,
		Location:  params.Location,
		Status:    SearchPending,
		StartedAt: s.now().UTC(),
	}
	if err := s.repo.CreateSearchRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create search run: %w", err)
	}

	s.logger.Info("インジェストバッチを開始",
		"runID", run.ID,
		"platform", params.Platform,
		"query", params.Query,
		"submissions", len(submissions),
	)

	var runErr error
	for _, sub := range submissions {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if err := s.acquireSlot(ctx, params.Platform, params.Endpoint); err != nil {
			runErr = err
			break
		}

		adm, err := s.dedup.Admit(ctx, sub)
		if err != nil {
			runErr = fmt.Errorf("admit %s: %w", sub.URL, err)
			break
		}

		run.ResultsCount++

		if adm.Rejected {
			// 重複は異常ではなく no-op として扱う
			run.DuplicateCount++
			s.logger.Debug("重複としてスキップ",
				"url", sub.URL,
				"reason", adm.Reason,
				"existingID", adm.ExistingID,
			)
			continue
		}

		if err := s.persistJob(ctx, adm.RawJob); err != nil {
			runErr = err
			break
		}
		run.NewJobsCount++
	}

	if runErr != nil {
		msg := runErr.Error()
		run.Status = SearchFailed
		run.ErrorMessage = &msg
		// 部分的な進捗も必ず記録する
		if err := s.repo.FailSearchRun(ctx, run.ID, run.ResultsCount, run.NewJobsCount, run.DuplicateCount, msg); err != nil {
			s.logger.Error("SearchRunの失敗記録に失敗", "runID", run.ID, "error", err)
		}
		return run, runErr
	}

	run.Status = SearchCompleted
	if err := s.repo.CompleteSearchRun(ctx, run.ID, run.ResultsCount, run.NewJobsCount, run.DuplicateCount); err != nil {
		return run, fmt.Errorf("failed to complete search run: %w", err)
	}

	s.logger.Info("インジェストバッチが完了",
		"runID", run.ID,
		"results", run.ResultsCount,
		"new", run.NewJobsCount,
		"duplicates", run.DuplicateCount,
	)

	return run, nil
}

// Renormalize は保存済みの全 RawJob に対して正規化をやり直す
// 生データが変わっていない Job は last_updated を含め一切更新しない
func (s *Service) Renormalize(ctx context.Context) (updated int, err error) {
	raws, err := s.repo.ListRawJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list raw jobs: %w", err)
	}

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		next := s.normalizer.Normalize(raw)

		existing, err := s.repo.GetJobByRawJobID(ctx, raw.ID)
		if err != nil {
			return updated, fmt.Errorf("failed to look up job for raw job %s: %w", raw.ID, err)
		}

		prev, ok := existing.Get()
		if !ok {
			if err := s.persistJob(ctx, raw); err != nil {
				return updated, err
			}
			updated++
			continue
		}

		if !Changed(prev, next) {
			continue
		}

		next.ID = prev.ID
		next.Status = prev.Status
		next.CreatedAt = prev.CreatedAt
		next.LastUpdated = s.now().UTC()
		if err := s.repo.UpdateJob(ctx, next); err != nil {
			return updated, fmt.Errorf("failed to update job %s: %w", next.ID, err)
		}
		updated++
	}

	return updated, nil
}

// acquireSlot はクォータ拒否時に RetryAfter だけ待って再試行する
func (s *Service) acquireSlot(ctx context.Context, platform, endpoint string) error {
	for attempt := 0; attempt < quotaMaxAttempts; attempt++ {
		decision := s.gate.Acquire(platform, endpoint)
		if decision.Allowed {
			return nil
		}

		s.logger.Debug("クォータ拒否により待機",
			"platform", platform,
			"endpoint", endpoint,
			"retryAfter", decision.RetryAfter,
			"attempt", attempt+1,
		)

		if err := s.sleep(ctx, decision.RetryAfter); err != nil {
			return err
		}
	}
	return ErrQuotaExhausted
}

// persistJob は RawJob を正規化して新しい Job として保存する
func (s *Service) persistJob(ctx context.Context, raw *RawJob) error {
	job := s.normalizer.Normalize(raw)
	job.ID = uuid.New()
	now := s.now().UTC()
	job.CreatedAt = now
	job.LastUpdated = now

	if job.NeedsReview {
		s.logger.Warn("必須フィールドが欠けたまま保存",
			"jobID", job.ID,
			"url", raw.URL,
		)
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create job for raw job %s: %w", raw.ID, err)
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
