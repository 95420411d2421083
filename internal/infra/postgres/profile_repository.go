package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"

	"github.com/jinford/jobmatch/internal/core/profile"
	"github.com/jinford/jobmatch/pkg/lock"
)

// ProfileRepository は core/profile.Repository を実装する PostgreSQL リポジトリ。
// アクティブ切り替えはトランザクション内でアドバイザリロックを握って行うため、
// プールそのものを保持する
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository は新しい ProfileRepository を返す。
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

var _ profile.Repository = (*ProfileRepository)(nil)

const profileColumns = `id, name, email, skills, years_of_experience, experience_level,
	target_salary_min, target_salary_max, target_salary_currency, preferred_location,
	remote_preference, willing_to_relocate, preferred_company_sizes, preferred_industries,
	resume_text, sections, is_active, created_at, updated_at`

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (mo.Option[*profile.UserProfile], error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = $1`,
		id,
	)
	return scanOptionalProfile(row)
}

func (r *ProfileRepository) GetActive(ctx context.Context) (mo.Option[*profile.UserProfile], error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE is_active`,
	)
	return scanOptionalProfile(row)
}

func (r *ProfileRepository) Create(ctx context.Context, p *profile.UserProfile) error {
	sections, err := sectionsToJSON(p.Sections)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_profiles (id, name, email, skills, years_of_experience, experience_level,
			target_salary_min, target_salary_max, target_salary_currency, preferred_location,
			remote_preference, willing_to_relocate, preferred_company_sizes, preferred_industries,
			resume_text, sections, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		p.ID, p.Name, p.Email, p.Skills, p.YearsOfExperience, profLevelToText(p.ExpLevel),
		p.TargetSalaryMin, p.TargetSalaryMax, p.TargetSalaryCurrency, p.PreferredLocation,
		string(p.RemotePref), p.WillingToRelocate, p.PreferredCompanySizes, p.PreferredIndustries,
		p.ResumeText, sections, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *profile.UserProfile) error {
	sections, err := sectionsToJSON(p.Sections)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE user_profiles SET name = $2, email = $3, skills = $4, years_of_experience = $5,
			experience_level = $6, target_salary_min = $7, target_salary_max = $8,
			target_salary_currency = $9, preferred_location = $10, remote_preference = $11,
			willing_to_relocate = $12, preferred_company_sizes = $13, preferred_industries = $14,
			resume_text = $15, sections = $16, updated_at = $17
		 WHERE id = $1`,
		p.ID, p.Name, p.Email, p.Skills, p.YearsOfExperience, profLevelToText(p.ExpLevel),
		p.TargetSalaryMin, p.TargetSalaryMax, p.TargetSalaryCurrency, p.PreferredLocation,
		string(p.RemotePref), p.WillingToRelocate, p.PreferredCompanySizes, p.PreferredIndustries,
		p.ResumeText, sections, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrProfileNotFound
	}
	return nil
}

// Activate は既存のアクティブプロファイルの無効化と対象の有効化を
// 単一トランザクションで原子的に行う。並行する Activate 同士は
// アドバイザリロックで直列化される
func (r *ProfileRepository) Activate(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lockID := lock.GenerateLockID("user_profiles", "active")
	if err := lock.Acquire(ctx, tx, lockID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE user_profiles SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("failed to deactivate profiles: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE user_profiles SET is_active = TRUE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to activate profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrProfileNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

func scanOptionalProfile(row pgx.Row) (mo.Option[*profile.UserProfile], error) {
	var p profile.UserProfile
	var level *string
	var remotePref string
	var sections []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Skills, &p.YearsOfExperience, &level,
		&p.TargetSalaryMin, &p.TargetSalaryMax, &p.TargetSalaryCurrency, &p.PreferredLocation,
		&remotePref, &p.WillingToRelocate, &p.PreferredCompanySizes, &p.PreferredIndustries,
		&p.ResumeText, &sections, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*profile.UserProfile](), nil
		}
		return mo.None[*profile.UserProfile](), fmt.Errorf("failed to scan user profile: %w", err)
	}
	p.ExpLevel = textToProfLevel(level)
	p.RemotePref = profile.RemotePreference(remotePref)
	if p.Sections, err = jsonToSections(sections); err != nil {
		return mo.None[*profile.UserProfile](), err
	}
	return mo.Some(&p), nil
}
