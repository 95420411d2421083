package ingestion

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus は求人のライフサイクル状態を表す
type JobStatus string

const (
	JobStatusActive  JobStatus = "active"
	JobStatusExpired JobStatus = "expired"
	JobStatusFilled  JobStatus = "filled"
)

// LocationType は勤務形態を表す
type LocationType string

const (
	LocationRemote LocationType = "remote"
	LocationHybrid LocationType = "hybrid"
	LocationOnsite LocationType = "onsite"
)

// EmploymentType は雇用形態を表す
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full-time"
	EmploymentPartTime   EmploymentType = "part-time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentTemporary  EmploymentType = "temporary"
	EmploymentInternship EmploymentType = "internship"
)

// ExperienceLevel は求人が要求する経験レベルを表す
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "entry"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperienceExecutive ExperienceLevel = "executive"
)

// SearchStatus は検索バッチの終端状態を表す
type SearchStatus string

const (
	SearchPending   SearchStatus = "pending"
	SearchCompleted SearchStatus = "completed"
	SearchFailed    SearchStatus = "failed"
)

// JobSubmission はスクレイパーアダプターから受け取る1件分の投稿データ
type JobSubmission struct {
	Platform  string         `json:"platform"`
	URL       string         `json:"url"`
	Payload   map[string]any `json:"payload"`
	ScrapedAt time.Time      `json:"scrapedAt"`
}

// RawJob はスクレイプ結果の不変キャプチャを表す
// (platform, url) と content_hash がそれぞれ一意。作成後は変更されない
type RawJob struct {
	ID          uuid.UUID      `json:"id"`
	Platform    string         `json:"platform"`
	URL         string         `json:"url"`
	Payload     map[string]any `json:"payload"`
	ContentHash string         `json:"contentHash"`
	ScrapedAt   time.Time      `json:"scrapedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Job は正規化済みの求人レコードを表す
// ちょうど1件の RawJob から導出される可変プロジェクション
type Job struct {
	ID       uuid.UUID  `json:"id"`
	RawJobID *uuid.UUID `json:"rawJobID,omitempty"`

	Title       string       `json:"title"`
	Company     string       `json:"company"`
	Location    *string      `json:"location,omitempty"`
	LocType     *LocationType `json:"locationType,omitempty"`
	Description string       `json:"description"`

	SalaryMin      *int    `json:"salaryMin,omitempty"`
	SalaryMax      *int    `json:"salaryMax,omitempty"`
	SalaryCurrency string  `json:"salaryCurrency"`
	SalaryPeriod   *string `json:"salaryPeriod,omitempty"`

	EmpType  *EmploymentType  `json:"employmentType,omitempty"`
	ExpLevel *ExperienceLevel `json:"experienceLevel,omitempty"`
	PostedAt *time.Time       `json:"postedAt,omitempty"`

	Platform    string   `json:"platform"`
	PlatformURL string   `json:"platformURL"`
	Skills      []string `json:"skills"`

	CompanySize *string `json:"companySize,omitempty"`
	Industry    *string `json:"industry,omitempty"`

	Status JobStatus `json:"status"`

	// NeedsReview は必須フィールドが欠けたまま正規化された場合に立つ
	NeedsReview bool `json:"needsReview"`

	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// SearchRun は1回のスクレイプバッチのライフサイクルを表す
type SearchRun struct {
	ID       uuid.UUID `json:"id"`
	Platform string    `json:"platform"`
	Query    string    `json:"query"`
	Location *string   `json:"location,omitempty"`

	Status         SearchStatus `json:"status"`
	ResultsCount   int          `json:"resultsCount"`
	NewJobsCount   int          `json:"newJobsCount"`
	DuplicateCount int          `json:"duplicateCount"`

	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ErrorMessage *string    `json:"errorMessage,omitempty"`
}
