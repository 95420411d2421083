package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/jobmatch/internal/core/scoring"
)

// ScoringRepository は core/scoring.Repository を実装する PostgreSQL リポジトリ。
type ScoringRepository struct {
	db DBTX
}

// NewScoringRepository は新しい ScoringRepository を返す。
func NewScoringRepository(db DBTX) *ScoringRepository {
	return &ScoringRepository{db: db}
}

var _ scoring.Repository = (*ScoringRepository)(nil)

func (r *ScoringRepository) UpsertScore(ctx context.Context, score *scoring.JobScore) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_scores (id, job_id, user_profile_id, total_score, skill_score, salary_score,
			location_score, company_score, success_probability, matched_skills, missing_skills,
			skill_similarity, explanation, scoring_version, rank, scored_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (job_id, user_profile_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			skill_score = EXCLUDED.skill_score,
			salary_score = EXCLUDED.salary_score,
			location_score = EXCLUDED.location_score,
			company_score = EXCLUDED.company_score,
			success_probability = EXCLUDED.success_probability,
			matched_skills = EXCLUDED.matched_skills,
			missing_skills = EXCLUDED.missing_skills,
			skill_similarity = EXCLUDED.skill_similarity,
			explanation = EXCLUDED.explanation,
			scoring_version = EXCLUDED.scoring_version,
			rank = EXCLUDED.rank,
			scored_at = EXCLUDED.scored_at`,
		score.ID, score.JobID, score.UserProfileID, score.TotalScore, score.SkillScore, score.SalaryScore,
		score.LocationScore, score.CompanyScore, score.SuccessProb, score.MatchedSkills, score.MissingSkills,
		score.SkillSimilarity, score.Explanation, score.ScoringVersion, score.Rank, score.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job score: %w", err)
	}
	return nil
}

const scoreColumns = `s.id, s.job_id, s.user_profile_id, s.total_score, s.skill_score, s.salary_score,
	s.location_score, s.company_score, s.success_probability, s.matched_skills, s.missing_skills,
	s.skill_similarity, s.explanation, s.scoring_version, s.rank, s.scored_at, j.posted_at`

func (r *ScoringRepository) GetScoreByPair(ctx context.Context, jobID, profileID uuid.UUID) (mo.Option[*scoring.JobScore], error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM job_scores s
		 JOIN jobs j ON j.id = s.job_id
		 WHERE s.job_id = $1 AND s.user_profile_id = $2`,
		jobID, profileID,
	)
	score, err := scanScore(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*scoring.JobScore](), nil
		}
		return mo.None[*scoring.JobScore](), err
	}
	return mo.Some(score), nil
}

func (r *ScoringRepository) ListScoresByProfile(ctx context.Context, profileID uuid.UUID) ([]*scoring.JobScore, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+scoreColumns+` FROM job_scores s
		 JOIN jobs j ON j.id = s.job_id
		 WHERE s.user_profile_id = $1
		 ORDER BY s.rank, s.total_score DESC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job scores: %w", err)
	}
	defer rows.Close()

	var scores []*scoring.JobScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

func (r *ScoringRepository) UpdateRanks(ctx context.Context, ranks map[uuid.UUID]int) error {
	if len(ranks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for id, rank := range ranks {
		batch.Queue(`UPDATE job_scores SET rank = $2 WHERE id = $1`, id, rank)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range ranks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to update ranks: %w", err)
		}
	}
	return nil
}

func scanScore(row pgx.Row) (*scoring.JobScore, error) {
	var score scoring.JobScore
	err := row.Scan(
		&score.ID, &score.JobID, &score.UserProfileID, &score.TotalScore, &score.SkillScore, &score.SalaryScore,
		&score.LocationScore, &score.CompanyScore, &score.SuccessProb, &score.MatchedSkills, &score.MissingSkills,
		&score.SkillSimilarity, &score.Explanation, &score.ScoringVersion, &score.Rank, &score.ScoredAt, &score.PostedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan job score: %w", err)
	}
	return &score, nil
}

func (r *ScoringRepository) GetJobEmbedding(ctx context.Context, jobID uuid.UUID) (mo.Option[*scoring.JobEmbedding], error) {
	var emb scoring.JobEmbedding
	var vector pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT job_id, embedding, model, text_digest, created_at FROM job_embeddings WHERE job_id = $1`,
		jobID,
	).Scan(&emb.JobID, &vector, &emb.Model, &emb.TextDigest, &emb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*scoring.JobEmbedding](), nil
		}
		return mo.None[*scoring.JobEmbedding](), fmt.Errorf("failed to get job embedding: %w", err)
	}
	emb.Vector = vector.Slice()
	return mo.Some(&emb), nil
}

func (r *ScoringRepository) UpsertJobEmbedding(ctx context.Context, emb *scoring.JobEmbedding) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO job_embeddings (job_id, embedding, model, text_digest, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			text_digest = EXCLUDED.text_digest,
			created_at = EXCLUDED.created_at`,
		emb.JobID, pgvector.NewVector(emb.Vector), emb.Model, emb.TextDigest, emb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job embedding: %w", err)
	}
	return nil
}
