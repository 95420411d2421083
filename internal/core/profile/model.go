package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// ExperienceLevel はユーザー自身の経験レベルを表す
type ExperienceLevel string

const (
	LevelJunior    ExperienceLevel = "junior"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelLead      ExperienceLevel = "lead"
	LevelExecutive ExperienceLevel = "executive"
)

// RemotePreference はリモート勤務の希望を表す
type RemotePreference string

const (
	RemoteOnly     RemotePreference = "remote_only"
	RemoteHybrid   RemotePreference = "hybrid"
	RemoteOnsite   RemotePreference = "onsite"
	RemoteFlexible RemotePreference = "flexible"
)

// CompanySize は希望する企業規模を表す
type CompanySize string

const (
	SizeStartup    CompanySize = "startup"
	SizeSmall      CompanySize = "small"
	SizeMid        CompanySize = "mid"
	SizeLarge      CompanySize = "large"
	SizeEnterprise CompanySize = "enterprise"
)

// ResumeSections はレジュメ生成に使う原稿セクション
type ResumeSections struct {
	Experience     []string `json:"experience"`
	Education      []string `json:"education"`
	Projects       []string `json:"projects"`
	Certifications []string `json:"certifications"`
}

// UserProfile はスコアリングとレジュメ生成の両方に使う単一ユーザーのプロファイル
// システム全体で is_active=true のレコードは高々1件
type UserProfile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`

	Skills            []string         `json:"skills"`
	YearsOfExperience *int             `json:"yearsOfExperience,omitempty"`
	ExpLevel          *ExperienceLevel `json:"experienceLevel,omitempty"`

	TargetSalaryMin      *int   `json:"targetSalaryMin,omitempty"`
	TargetSalaryMax      *int   `json:"targetSalaryMax,omitempty"`
	TargetSalaryCurrency string `json:"targetSalaryCurrency"`

	PreferredLocation *string          `json:"preferredLocation,omitempty"`
	RemotePref        RemotePreference `json:"remotePreference"`
	WillingToRelocate bool             `json:"willingToRelocate"`

	PreferredCompanySizes []string `json:"preferredCompanySizes"`
	PreferredIndustries   []string `json:"preferredIndustries"`

	ResumeText string         `json:"resumeText"`
	Sections   ResumeSections `json:"sections"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrProfileNotFound は指定されたプロファイルが存在しない場合のエラー
var ErrProfileNotFound = errors.New("user profile not found")

// Repository はプロファイルのデータアクセスインターフェース
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (mo.Option[*UserProfile], error)
	// GetActive は is_active=true のプロファイルを返す
	GetActive(ctx context.Context) (mo.Option[*UserProfile], error)
	Create(ctx context.Context, p *UserProfile) error
	Update(ctx context.Context, p *UserProfile) error
	// Activate は既存のアクティブプロファイルの無効化と対象の有効化を
	// 単一トランザクションで原子的に行う
	Activate(ctx context.Context, id uuid.UUID) error
}
