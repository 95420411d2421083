package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/samber/mo"

	"github.com/jinford/jobmatch/internal/core/ingestion"
	"github.com/jinford/jobmatch/internal/core/profile"
)

// skillMatch はスキル一致の算出結果
type skillMatch struct {
	score   mo.Option[float64]
	matched []string
	missing []string
}

// scoreSkills は求人側の要求スキルのうちプロファイルが満たす割合を返す
// 求人にスキルが1つも無い場合は判断材料なしとして欠損にする
func scoreSkills(job *ingestion.Job, prof *profile.UserProfile) skillMatch {
	if len(job.Skills) == 0 {
		return skillMatch{score: mo.None[float64]()}
	}

	have := make(map[string]struct{}, len(prof.Skills))
	for _, s := range prof.Skills {
		have[canonicalizeSkill(s)] = struct{}{}
	}

	matched := make([]string, 0, len(job.Skills))
	missing := make([]string, 0, len(job.Skills))
	for _, s := range job.Skills {
		if _, ok := have[canonicalizeSkill(s)]; ok {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)

	score := float64(len(matched)) / float64(len(job.Skills)) * 100
	return skillMatch{
		score:   mo.Some(clamp(score)),
		matched: matched,
		missing: missing,
	}
}

// canonicalizeSkill は統制語彙経由で別名を正準形へ寄せてから小文字化する
func canonicalizeSkill(s string) string {
	if canonical, ok := ingestion.CanonicalSkill(s); ok {
		return strings.ToLower(canonical)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// scoreSalary は求人の給与レンジと希望レンジの重なりを希望レンジ幅で割った
// 線形スコアを返す。どちらか一方でもレンジ情報を欠く場合は欠損
func scoreSalary(job *ingestion.Job, prof *profile.UserProfile) mo.Option[float64] {
	if prof.TargetSalaryMin == nil || prof.TargetSalaryMax == nil {
		return mo.None[float64]()
	}
	if job.SalaryMin == nil {
		return mo.None[float64]()
	}

	jobMin := float64(*job.SalaryMin)
	// 上限未記載の求人は単一点レンジとして扱う
	jobMax := jobMin
	if job.SalaryMax != nil {
		jobMax = float64(*job.SalaryMax)
	}

	targetMin := float64(*prof.TargetSalaryMin)
	targetMax := float64(*prof.TargetSalaryMax)

	overlap := math.Min(jobMax, targetMax) - math.Max(jobMin, targetMin)
	if overlap <= 0 {
		return mo.Some(0.0)
	}

	span := targetMax - targetMin
	if span <= 0 {
		// 希望が単一点の場合、レンジに含まれていれば満点
		return mo.Some(100.0)
	}

	return mo.Some(clamp(overlap / span * 100))
}

// scoreLocation はリモート希望と求人の勤務形態の組み合わせで段階評価する
// 求人に勤務形態も所在地も無い場合は欠損
func scoreLocation(job *ingestion.Job, prof *profile.UserProfile) mo.Option[float64] {
	if job.LocType == nil && job.Location == nil {
		return mo.None[float64]()
	}

	// 勤務形態が不明で所在地だけある場合はオンサイト扱いで評価する
	locType := ingestion.LocationOnsite
	if job.LocType != nil {
		locType = *job.LocType
	}

	switch prof.RemotePref {
	case profile.RemoteOnly:
		if locType == ingestion.LocationRemote {
			return mo.Some(100.0)
		}
		return mo.Some(10.0)

	case profile.RemoteHybrid:
		switch locType {
		case ingestion.LocationHybrid:
			return mo.Some(100.0)
		case ingestion.LocationRemote:
			return mo.Some(90.0)
		default:
			return mo.Some(50.0)
		}

	case profile.RemoteOnsite:
		if locType == ingestion.LocationRemote || locType == ingestion.LocationHybrid {
			return mo.Some(40.0)
		}
		if locationMatches(job.Location, prof.PreferredLocation) {
			return mo.Some(100.0)
		}
		if prof.WillingToRelocate {
			return mo.Some(70.0)
		}
		return mo.Some(30.0)

	default: // flexible
		if locType == ingestion.LocationRemote {
			return mo.Some(100.0)
		}
		if locationMatches(job.Location, prof.PreferredLocation) {
			return mo.Some(90.0)
		}
		if prof.WillingToRelocate {
			return mo.Some(70.0)
		}
		return mo.Some(60.0)
	}
}

func locationMatches(jobLocation, preferred *string) bool {
	if jobLocation == nil || preferred == nil {
		return false
	}
	jl := strings.ToLower(*jobLocation)
	pl := strings.ToLower(*preferred)
	return strings.Contains(jl, pl) || strings.Contains(pl, jl)
}

// scoreCompany は企業規模・業界の希望との一致を二値評価する
// プロファイルに希望が無い、または求人に属性が無い場合は欠損（中立スキップ）
func scoreCompany(job *ingestion.Job, prof *profile.UserProfile) mo.Option[float64] {
	hasPref := len(prof.PreferredCompanySizes) > 0 || len(prof.PreferredIndustries) > 0
	if !hasPref {
		return mo.None[float64]()
	}
	if job.CompanySize == nil && job.Industry == nil {
		return mo.None[float64]()
	}

	if job.CompanySize != nil && containsFold(prof.PreferredCompanySizes, *job.CompanySize) {
		return mo.Some(100.0)
	}
	if job.Industry != nil && containsFold(prof.PreferredIndustries, *job.Industry) {
		return mo.Some(100.0)
	}
	return mo.Some(0.0)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// cosineSimilarity は2つの埋め込みベクトルのコサイン類似度を返す
// 次元不一致やゼロノルムの場合は欠損を返す
func cosineSimilarity(a, b []float32) mo.Option[float64] {
	if len(a) == 0 || len(a) != len(b) {
		return mo.None[float64]()
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return mo.None[float64]()
	}
	return mo.Some(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
