package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Version は重みやアルゴリズムの世代を表すタグ
// スコアレコードに保存され、古い世代のスコアを識別可能にする
const Version = "v1.0"

// Weights は各コンポーネントの合成重み。欠損コンポーネントがある場合は
// 存在するコンポーネントの重みだけで再正規化される
type Weights struct {
	Skill    float64
	Salary   float64
	Location float64
	Company  float64
	Success  float64
}

// DefaultWeights は標準の重み付け
var DefaultWeights = Weights{
	Skill:    0.35,
	Salary:   0.20,
	Location: 0.15,
	Company:  0.10,
	Success:  0.20,
}

// Validate は重みが非負で総和がほぼ1であることを確認する
func (w Weights) Validate() error {
	for _, v := range []float64{w.Skill, w.Salary, w.Location, w.Company, w.Success} {
		if v < 0 {
			return errors.New("score weights must be non-negative")
		}
	}
	sum := w.Skill + w.Salary + w.Location + w.Company + w.Success
	if sum < 0.999 || sum > 1.001 {
		return errors.New("score weights must sum to 1.0")
	}
	return nil
}

// ErrScoringInputMissing は全コンポーネントが算出不能だった場合のエラー
// Job と Profile の双方に判断材料が一切ない場合にのみ発生する
var ErrScoringInputMissing = errors.New("no score component could be computed")

// JobScore は1件の求人と1つのプロファイルの適合度評価
// (JobID, UserProfileID) のペアごとに高々1件で、再スコアリングは上書きする
type JobScore struct {
	ID            uuid.UUID `json:"id"`
	JobID         uuid.UUID `json:"jobId"`
	UserProfileID uuid.UUID `json:"userProfileId"`

	TotalScore float64 `json:"totalScore"`

	SkillScore    *float64 `json:"skillScore,omitempty"`
	SalaryScore   *float64 `json:"salaryScore,omitempty"`
	LocationScore *float64 `json:"locationScore,omitempty"`
	CompanyScore  *float64 `json:"companyScore,omitempty"`
	SuccessProb   *float64 `json:"successProbability,omitempty"`

	MatchedSkills []string `json:"matchedSkills"`
	MissingSkills []string `json:"missingSkills"`

	// SkillSimilarity は埋め込みベクトル間のコサイン類似度（補助指標）
	// 総合スコアには合成されない
	SkillSimilarity *float64 `json:"skillSimilarity,omitempty"`

	Explanation    string `json:"explanation"`
	ScoringVersion string `json:"scoringVersion"`

	// Rank は同一プロファイル内での競技順位（1始まり）。未ランク時は0
	Rank int `json:"rank"`

	// PostedAt はランキングのタイブレークに使う求人の掲載日時
	// jobs テーブルとの結合で読み出されるだけで、job_scores には保存されない
	PostedAt *time.Time `json:"-"`

	ScoredAt time.Time `json:"scoredAt"`
}

// JobEmbedding は求人説明文の埋め込みベクトル
// TextDigest が現在の説明文のダイジェストと一致しない場合は再計算が必要
type JobEmbedding struct {
	JobID      uuid.UUID
	Vector     []float32
	Model      string
	TextDigest string
	CreatedAt  time.Time
}

// Repository はスコアと埋め込みのデータアクセスインターフェース
type Repository interface {
	// UpsertScore は (job_id, user_profile_id) をキーに挿入または上書きする
	UpsertScore(ctx context.Context, score *JobScore) error
	GetScoreByPair(ctx context.Context, jobID, profileID uuid.UUID) (mo.Option[*JobScore], error)
	// ListScoresByProfile は PostedAt を結合済みの全スコアを返す
	ListScoresByProfile(ctx context.Context, profileID uuid.UUID) ([]*JobScore, error)
	// UpdateRanks はスコアIDごとの順位をまとめて書き込む
	UpdateRanks(ctx context.Context, ranks map[uuid.UUID]int) error

	GetJobEmbedding(ctx context.Context, jobID uuid.UUID) (mo.Option[*JobEmbedding], error)
	UpsertJobEmbedding(ctx context.Context, emb *JobEmbedding) error
}

// Embedder はテキストを埋め込みベクトルへ変換するインターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
