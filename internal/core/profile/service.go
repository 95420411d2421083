package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxYearsOfExperience は経験年数の上限（バリデーション用）
const maxYearsOfExperience = 50

// Service はプロファイル管理のユースケースを提供する
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

type serviceOptions struct {
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithProfileLogger は Service にロガーを設定する
func WithProfileLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithProfileClock は現在時刻の取得方法を上書きする（テスト用）
func WithProfileClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		o.now = now
	}
}

// NewService は新しい Service を作成する
func NewService(repo Repository, opts ...ServiceOption) *Service {
	options := serviceOptions{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Service{
		repo:   repo,
		logger: options.logger,
		now:    options.now,
	}
}

// Create はプロファイルを検証・正規化して保存する
// activate が真なら保存後に原子的にアクティブ化する
func (s *Service) Create(ctx context.Context, p *UserProfile, activate bool) (*UserProfile, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	p.ID = uuid.New()
	p.Skills = NormalizeSkills(p.Skills)
	if p.TargetSalaryCurrency == "" {
		p.TargetSalaryCurrency = "USD"
	}
	if p.RemotePref == "" {
		p.RemotePref = RemoteFlexible
	}
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = false

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if activate {
		if err := s.Activate(ctx, p.ID); err != nil {
			return nil, err
		}
		p.IsActive = true
	}

	s.logger.Info("プロファイルを作成", "profileID", p.ID, "active", activate)
	return p, nil
}

// Activate は対象プロファイルをアクティブにする
// 既存のアクティブプロファイルの無効化はリポジトリ側で原子的に行われる
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Activate(ctx, id); err != nil {
		return fmt.Errorf("failed to activate profile %s: %w", id, err)
	}
	s.logger.Info("プロファイルをアクティブ化", "profileID", id)
	return nil
}

// GetActive はアクティブなプロファイルを返す
func (s *Service) GetActive(ctx context.Context) (*UserProfile, error) {
	opt, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}
	p, ok := opt.Get()
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// UpdateSkills はスキルリストを差し替える。再スコアリングは呼び出し側の責務
func (s *Service) UpdateSkills(ctx context.Context, id uuid.UUID, skills []string) (*UserProfile, error) {
	opt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p, ok := opt.Get()
	if !ok {
		return nil, ErrProfileNotFound
	}

	p.Skills = NormalizeSkills(skills)
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

// NormalizeSkills は空要素を除き、前後の空白を落としてタイトルケースに揃える
func NormalizeSkills(skills []string) []string {
	titleCaser := cases.Title(language.English)
	normalized := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		trimmed := strings.TrimSpace(skill)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, titleCaser.String(trimmed))
	}
	return normalized
}

func validate(p *UserProfile) error {
	if p.YearsOfExperience != nil {
		if *p.YearsOfExperience < 0 || *p.YearsOfExperience > maxYearsOfExperience {
			return fmt.Errorf("years of experience must be between 0 and %d", maxYearsOfExperience)
		}
	}
	if p.TargetSalaryMin != nil && p.TargetSalaryMax != nil && *p.TargetSalaryMin > *p.TargetSalaryMax {
		return fmt.Errorf("target salary range is inverted")
	}
	return nil
}
