package scoring

import "sort"

// rankEpsilon は総合スコアの同点判定に使う許容誤差
const rankEpsilon = 1e-9

// Rank はスコア一覧を順位付けして返す
// 並び順は総合スコア降順 → 掲載日時降順 → 求人ID昇順で決定的。
// 順位は1始まりの競技順位で、同点は同順位を共有し次の順位は人数分飛ぶ
// （例: {90, 90, 70} → {1, 1, 3}）。引数の要素は変更せず、
// 順位を書き込んだコピーをソート済みで返す
func Rank(scores []*JobScore) []*JobScore {
	ranked := make([]*JobScore, len(scores))
	for i, score := range scores {
		copied := *score
		ranked[i] = &copied
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if diff := a.TotalScore - b.TotalScore; diff > rankEpsilon || diff < -rankEpsilon {
			return a.TotalScore > b.TotalScore
		}
		switch {
		case a.PostedAt != nil && b.PostedAt != nil && !a.PostedAt.Equal(*b.PostedAt):
			return a.PostedAt.After(*b.PostedAt)
		case a.PostedAt != nil && b.PostedAt == nil:
			return true
		case a.PostedAt == nil && b.PostedAt != nil:
			return false
		}
		return a.JobID.String() < b.JobID.String()
	})

	for i, score := range ranked {
		if i > 0 && sameScore(score.TotalScore, ranked[i-1].TotalScore) {
			score.Rank = ranked[i-1].Rank
			continue
		}
		score.Rank = i + 1
	}

	return ranked
}

func sameScore(a, b float64) bool {
	diff := a - b
	return diff <= rankEpsilon && diff >= -rankEpsilon
}
