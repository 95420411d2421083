package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
)

// DefaultWorkerCount はスコアリングワーカーのデフォルト並列数
const DefaultWorkerCount = 4

// JobSource はスコアリング対象の求人を供給するインターフェース
type JobSource interface {
	ListActiveJobs(ctx context.Context) ([]*ingestion.Job, error)
}

// ProfileSource はアクティブプロファイルを供給するインターフェース
type ProfileSource interface {
	GetActive(ctx context.Context) (*profile.UserProfile, error)
}

// BatchStats は1回のバッチスコアリングの集計結果
type BatchStats struct {
	TotalJobs         int
	Scored            int
	Skipped           int
	Failed            int
	EmbeddingFailures int
}

// Service はアクティブな全求人をアクティブプロファイルに対して
// スコアリングし、順位付けまで行うバッチオーケストレータ
type Service struct {
	repo     Repository
	jobs     JobSource
	profiles ProfileSource
	engine   *Engine
	embedder Embedder
	workers  int
	logger   *slog.Logger
	now      func() time.Time
}

type batchOptions struct {
	embedder Embedder
	workers  int
	logger   *slog.Logger
	now      func() time.Time
}

// BatchOption は Service のオプション設定
type BatchOption func(*batchOptions)

// WithEmbedder は類似度算出用の埋め込み生成器を設定する
// 未設定の場合、skill_similarity は記録されない
func WithEmbedder(e Embedder) BatchOption {
	return func(o *batchOptions) {
		o.embedder = e
	}
}

// WithWorkerCount はスコアリングの並列数を設定する
func WithWorkerCount(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBatchLogger は Service にロガーを設定する
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(o *batchOptions) {
		o.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(repo Repository, jobs JobSource, profiles ProfileSource, engine *Engine, opts ...BatchOption) *Service {
	options := batchOptions{
		workers: DefaultWorkerCount,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Service{
		repo:     repo,
		jobs:     jobs,
		profiles: profiles,
		engine:   engine,
		embedder: options.embedder,
		workers:  options.workers,
		logger:   options.logger,
		now:      options.now,
	}
}

// scoreResult はワーカー1件分の処理結果
type scoreResult struct {
	score *JobScore
	err   error
}

// ScoreAll はアクティブな全求人をアクティブプロファイルに対してスコアリングし、
// 全件の順位を付け直す。個別求人の失敗はバッチ全体を止めない
func (s *Service) ScoreAll(ctx context.Context) (*BatchStats, error) {
	prof, err := s.profiles.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active profile: %w", err)
	}

	jobs, err := s.jobs.ListActiveJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	// プロファイル側の埋め込みはバッチで1回だけ生成する。失敗しても
	// 類似度なしでスコアリングを続行する
	var profVec []float32
	var embeddingFailures atomic.Int64
	if s.embedder != nil && prof.ResumeText != "" {
		profVec, err = s.embedder.Embed(ctx, prof.ResumeText)
		if err != nil {
			s.logger.Warn("プロファイル埋め込みの生成に失敗、類似度なしで続行", "error", err)
			embeddingFailures.Add(1)
			profVec = nil
		}
	}

	s.logger.Info("バッチスコアリングを開始",
		"profileID", prof.ID,
		"jobs", len(jobs),
		"workers", s.workers,
	)

	jobChan := make(chan *ingestion.Job, len(jobs))
	resultChan := make(chan *scoreResult, len(jobs))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(jobChan)
		for _, job := range jobs {
			select {
			case jobChan <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			s.scoreWorker(ctx, prof, profVec, jobChan, resultChan, &embeddingFailures)
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	stats := &BatchStats{TotalJobs: len(jobs)}
	scored := make([]*JobScore, 0, len(jobs))
	for result := range resultChan {
		if result.err != nil {
			if errors.Is(result.err, ErrScoringInputMissing) {
				stats.Skipped++
				continue
			}
			s.logger.Warn("求人のスコアリングに失敗", "error", result.err)
			stats.Failed++
			continue
		}
		stats.Scored++
		scored = append(scored, result.score)
	}
	stats.EmbeddingFailures = int(embeddingFailures.Load())

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if err := s.rank(ctx, scored); err != nil {
		return stats, err
	}

	s.logger.Info("バッチスコアリングが完了",
		"scored", stats.Scored,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"embeddingFailures", stats.EmbeddingFailures,
	)

	return stats, nil
}

func (s *Service) scoreWorker(
	ctx context.Context,
	prof *profile.UserProfile,
	profVec []float32,
	jobChan <-chan *ingestion.Job,
	resultChan chan<- *scoreResult,
	embeddingFailures *atomic.Int64,
) {
	for job := range jobChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var jobVec []float32
		if profVec != nil {
			vec, err := s.ensureJobEmbedding(ctx, job)
			if err != nil {
				// 類似度は補助指標なので埋め込み失敗は致命にしない
				s.logger.Debug("求人埋め込みの取得に失敗", "jobID", job.ID, "error", err)
				embeddingFailures.Add(1)
			} else {
				jobVec = vec
			}
		}

		score, err := s.engine.Score(job, prof, jobVec, profVec)
		if err != nil {
			resultChan <- &scoreResult{err: err}
			continue
		}

		if err := s.repo.UpsertScore(ctx, score); err != nil {
			resultChan <- &scoreResult{err: fmt.Errorf("failed to upsert score for job %s: %w", job.ID, err)}
			continue
		}
		resultChan <- &scoreResult{score: score}
	}
}

// ensureJobEmbedding は求人説明文の埋め込みを取得し、説明文が変わっていれば
// 再計算して保存する
func (s *Service) ensureJobEmbedding(ctx context.Context, job *ingestion.Job) ([]float32, error) {
	digest := textDigest(job.Description)

	existing, err := s.repo.GetJobEmbedding(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if emb, ok := existing.Get(); ok {
		if emb.TextDigest == digest && emb.Model == s.embedder.ModelName() {
			return emb.Vector, nil
		}
	}

	vec, err := s.embedder.Embed(ctx, job.Description)
	if err != nil {
		return nil, err
	}

	emb := &JobEmbedding{
		JobID:      job.ID,
		Vector:     vec,
		Model:      s.embedder.ModelName(),
		TextDigest: digest,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.UpsertJobEmbedding(ctx, emb); err != nil {
		return nil, err
	}
	return vec, nil
}

// rank は今回スコアリングした全件に競技順位を付けて保存する
func (s *Service) rank(ctx context.Context, scored []*JobScore) error {
	if len(scored) == 0 {
		return nil
	}

	ranked := Rank(scored)
	ranks := make(map[uuid.UUID]int, len(ranked))
	for _, score := range ranked {
		ranks[score.ID] = score.Rank
	}

	if err := s.repo.UpdateRanks(ctx, ranks); err != nil {
		return fmt.Errorf("failed to persist ranks: %w", err)
	}
	return nil
}

// textDigest は埋め込みの鮮度判定に使う説明文のダイジェスト
func textDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
