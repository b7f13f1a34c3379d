package feed

import (
	"math"
	"sort"
)

// Near-tie threshold: scores closer than max(minTieGap, tieRatio*max(|a|,|b|))
// are ordered by recency instead.
const (
	minTieGap = 2.0
	tieRatio  = 0.05
)

// SortScores orders scores in place: descending score, with near-equal scores
// resolved by descending creation time.
//
// The comparator is not transitive across chains of near-ties, so a stable
// sort is used and equal-looking runs keep their input order.
func SortScores(scores []ChirpScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return rankedBefore(scores[i], scores[j])
	})
}

func rankedBefore(a, b ChirpScore) bool {
	threshold := math.Max(minTieGap, tieRatio*math.Max(math.Abs(a.Score), math.Abs(b.Score)))
	if math.Abs(a.Score-b.Score) < threshold {
		return a.Chirp.CreatedAt.After(b.Chirp.CreatedAt)
	}
	return a.Score > b.Score
}
