package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
)

// Engine は1件の求人と1つのプロファイルの適合度を評価する純粋な計算器
// データアクセスは持たず、同一入力に対して常に同一のスコアを返す
type Engine struct {
	weights  Weights
	strategy SuccessStrategy
	now      func() time.Time
}

type engineOptions struct {
	weights  Weights
	strategy SuccessStrategy
	now      func() time.Time
}

// EngineOption は Engine のオプション設定
type EngineOption func(*engineOptions)

// WithWeights は合成重みを上書きする
func WithWeights(w Weights) EngineOption {
	return func(o *engineOptions) {
		o.weights = w
	}
}

// WithSuccessStrategy は成功確率の推定戦略を差し替える
func WithSuccessStrategy(s SuccessStrategy) EngineOption {
	return func(o *engineOptions) {
		o.strategy = s
	}
}

// WithEngineClock は現在時刻の取得方法を上書きする（テスト用）
func WithEngineClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}

// NewEngine は新しい Engine を作成する
func NewEngine(opts ...EngineOption) (*Engine, error) {
	options := engineOptions{
		weights:  DefaultWeights,
		strategy: &LevelAlignmentStrategy{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := options.weights.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		weights:  options.weights,
		strategy: options.strategy,
		now:      options.now,
	}, nil
}

// Score は求人とプロファイルの適合度を評価する
// jobVec / profVec はどちらかが nil でもよく、その場合は類似度を記録しない
// 全コンポーネントが算出不能な場合のみ ErrScoringInputMissing を返す
func (e *Engine) Score(job *ingestion.Job, prof *profile.UserProfile, jobVec, profVec []float32) (*JobScore, error) {
	skills := scoreSkills(job, prof)
	salary := scoreSalary(job, prof)
	location := scoreLocation(job, prof)
	company := scoreCompany(job, prof)
	success := e.strategy.Probability(job, prof, skills.score)

	total, ok := combine([]weightedComponent{
		{e.weights.Skill, skills.score},
		{e.weights.Salary, salary},
		{e.weights.Location, location},
		{e.weights.Company, company},
		{e.weights.Success, success},
	})
	if !ok {
		return nil, fmt.Errorf("job %s vs profile %s: %w", job.ID, prof.ID, ErrScoringInputMissing)
	}

	score := &JobScore{
		ID:              uuid.New(),
		JobID:           job.ID,
		UserProfileID:   prof.ID,
		TotalScore:      total,
		SkillScore:      optPtr(skills.score),
		SalaryScore:     optPtr(salary),
		LocationScore:   optPtr(location),
		CompanyScore:    optPtr(company),
		SuccessProb:     optPtr(success),
		MatchedSkills:   skills.matched,
		MissingSkills:   skills.missing,
		SkillSimilarity: optPtr(cosineSimilarity(jobVec, profVec)),
		ScoringVersion:  Version,
		PostedAt:        job.PostedAt,
		ScoredAt:        e.now().UTC(),
	}
	score.Explanation = buildExplanation(job, score)

	return score, nil
}

// weightedComponent は重みとコンポーネント値のペア
type weightedComponent struct {
	weight float64
	value  mo.Option[float64]
}

// combine は存在するコンポーネントの重みを再正規化して加重平均を取る
func combine(components []weightedComponent) (float64, bool) {
	var weighted, weightSum float64
	for _, c := range components {
		v, present := c.value.Get()
		if !present {
			continue
		}
		weighted += c.weight * v
		weightSum += c.weight
	}
	if weightSum == 0 {
		return 0, false
	}
	return clamp(weighted / weightSum), true
}

// buildExplanation はコンポーネントごとの短い根拠文を組み立てる
func buildExplanation(job *ingestion.Job, score *JobScore) string {
	var lines []string

	if score.SkillScore != nil {
		marker := markerFor(*score.SkillScore)
		lines = append(lines, fmt.Sprintf("%s skills: %d/%d required skills matched",
			marker, len(score.MatchedSkills), len(job.Skills)))
		if len(score.MissingSkills) > 0 {
			lines = append(lines, fmt.Sprintf("    missing: %s", strings.Join(score.MissingSkills, ", ")))
		}
	}
	if score.SalaryScore != nil {
		lines = append(lines, fmt.Sprintf("%s salary: %.0f%% of target range covered",
			markerFor(*score.SalaryScore), *score.SalaryScore))
	}
	if score.LocationScore != nil {
		lines = append(lines, fmt.Sprintf("%s location: %s", markerFor(*score.LocationScore), locationLabel(job)))
	}
	if score.CompanyScore != nil {
		label := "company preferences not met"
		if *score.CompanyScore >= 100 {
			label = "company matches preferences"
		}
		lines = append(lines, fmt.Sprintf("%s company: %s", markerFor(*score.CompanyScore), label))
	}
	if score.SuccessProb != nil {
		lines = append(lines, fmt.Sprintf("%s estimated application success: %.0f%%",
			markerFor(*score.SuccessProb), *score.SuccessProb))
	}

	return strings.Join(lines, "\n")
}

// markerFor はスコア帯に応じた ASCII マーカーを返す
func markerFor(score float64) string {
	switch {
	case score >= 70:
		return "[+]"
	case score >= 40:
		return "[~]"
	default:
		return "[!]"
	}
}

func locationLabel(job *ingestion.Job) string {
	parts := make([]string, 0, 2)
	if job.LocType != nil {
		parts = append(parts, string(*job.LocType))
	}
	if job.Location != nil {
		parts = append(parts, *job.Location)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ", ")
}

func optPtr(opt mo.Option[float64]) *float64 {
	v, ok := opt.Get()
	if !ok {
		return nil
	}
	return &v
}
