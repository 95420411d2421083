package scoring

import (
	"github.com/samber/mo"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
)

// SuccessStrategy は応募成功確率の推定アルゴリズムを差し替え可能にする
// skillCoverage には算出済みのスキルスコア（0-100）が、未算出なら欠損が渡される
type SuccessStrategy interface {
	Probability(job *ingestion.Job, prof *profile.UserProfile, skillCoverage mo.Option[float64]) mo.Option[float64]
}

// LevelAlignmentStrategy は求人の想定レベルとプロファイルのレベルの整合から
// 成功確率を推定するデフォルト戦略
type LevelAlignmentStrategy struct{}

var _ SuccessStrategy = (*LevelAlignmentStrategy)(nil)

// levelOrdinal はレベルを比較可能な序数に写像する
var levelOrdinal = map[profile.ExperienceLevel]int{
	profile.LevelJunior:    0,
	profile.LevelMid:       1,
	profile.LevelSenior:    2,
	profile.LevelLead:      3,
	profile.LevelExecutive: 4,
}

var jobLevelOrdinal = map[ingestion.ExperienceLevel]int{
	ingestion.ExperienceEntry:     0,
	ingestion.ExperienceMid:       1,
	ingestion.ExperienceSenior:    2,
	ingestion.ExperienceLead:      3,
	ingestion.ExperienceExecutive: 4,
}

// Probability はレベル差に応じた基礎確率をスキル充足率とブレンドして返す
// プロファイル側にレベルも経験年数も無い場合は欠損
func (s *LevelAlignmentStrategy) Probability(job *ingestion.Job, prof *profile.UserProfile, skillCoverage mo.Option[float64]) mo.Option[float64] {
	profLevel, ok := profileLevel(prof)
	if !ok {
		return mo.None[float64]()
	}

	// 求人側のレベルが不明な場合はミドル相当とみなす
	jobLevel := 1
	if job.ExpLevel != nil {
		if ord, found := jobLevelOrdinal[*job.ExpLevel]; found {
			jobLevel = ord
		}
	}

	base := baseProbability(jobLevel, profLevel)

	// 経験年数がレベル帯の上端を超えていればストレッチ分を補正する
	if prof.YearsOfExperience != nil && jobLevel > profLevel {
		if *prof.YearsOfExperience >= expectedYears(jobLevel) {
			base += 10
		}
	}

	if coverage, present := skillCoverage.Get(); present {
		base = base*0.7 + coverage*0.3
	}

	return mo.Some(clamp(base))
}

// profileLevel はレベル指定を優先し、無ければ経験年数からレベルを導出する
func profileLevel(prof *profile.UserProfile) (int, bool) {
	if prof.ExpLevel != nil {
		if ord, ok := levelOrdinal[*prof.ExpLevel]; ok {
			return ord, true
		}
	}
	if prof.YearsOfExperience == nil {
		return 0, false
	}
	years := *prof.YearsOfExperience
	switch {
	case years <= 2:
		return 0, true
	case years <= 5:
		return 1, true
	case years <= 9:
		return 2, true
	default:
		return 3, true
	}
}

// baseProbability はレベル差ごとの基礎確率
func baseProbability(jobLevel, profLevel int) float64 {
	switch diff := jobLevel - profLevel; {
	case diff == 0:
		return 90
	case diff == -1:
		// 1段階オーバークオリファイ
		return 80
	case diff <= -2:
		return 50
	case diff == 1:
		// 1段階ストレッチ
		return 60
	default:
		return 30
	}
}

// expectedYears はレベル帯の想定経験年数の下限
func expectedYears(level int) int {
	switch level {
	case 0:
		return 0
	case 1:
		return 3
	case 2:
		return 6
	case 3:
		return 10
	default:
		return 15
	}
}
