package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreWithTotal(total float64, postedAt *time.Time) *JobScore {
	return &JobScore{
		ID:         uuid.New(),
		JobID:      uuid.New(),
		TotalScore: total,
		PostedAt:   postedAt,
	}
}

func TestRankCompetitionRanking(t *testing.T) {
	scores := []*JobScore{
		scoreWithTotal(70, nil),
		scoreWithTotal(90, nil),
		scoreWithTotal(90, nil),
	}

	ranked := Rank(scores)

	require.Len(t, ranked, 3)
	// 同点は同順位を共有し、次の順位は人数分飛ぶ
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, 70.0, ranked[2].TotalScore)
}

func TestRankTieBreakByPostedAt(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	oldScore := scoreWithTotal(90, &older)
	newScore := scoreWithTotal(90, &newer)

	ranked := Rank([]*JobScore{oldScore, newScore})

	// 同点なら掲載日時が新しい方が先に並ぶ（順位は共有）
	assert.Equal(t, newScore.ID, ranked[0].ID)
	assert.Equal(t, oldScore.ID, ranked[1].ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank)
}

func TestRankTieBreakByJobID(t *testing.T) {
	a := scoreWithTotal(80, nil)
	b := scoreWithTotal(80, nil)

	first := Rank([]*JobScore{a, b})
	second := Rank([]*JobScore{b, a})

	// 入力順に依らず決定的な並びになる
	assert.Equal(t, first[0].JobID, second[0].JobID)
	assert.Equal(t, first[1].JobID, second[1].JobID)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	low := scoreWithTotal(10, nil)
	high := scoreWithTotal(99, nil)
	input := []*JobScore{low, high}

	ranked := Rank(input)

	// 入力の並びも要素も変更されない。順位はコピー側にのみ付く
	assert.Equal(t, low.ID, input[0].ID)
	assert.Equal(t, high.ID, input[1].ID)
	assert.Zero(t, low.Rank)
	assert.Zero(t, high.Rank)
	assert.Equal(t, high.ID, ranked[0].ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2, ranked[1].Rank)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}
