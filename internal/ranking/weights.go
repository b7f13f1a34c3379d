package ranking

import (
	"math"
	"time"
)

// FollowingBoost maps a following-weight tier to its flat boost.
// Unknown tiers are treated as medium.
func FollowingBoost(tier string, w FollowingWeights) float64 {
	switch tier {
	case "none":
		return w.None
	case "light":
		return w.Light
	case "heavy":
		return w.Heavy
	default:
		return w.Medium
	}
}

// InterestBoost computes the interest-match contribution for matchCount
// overlapping topics. Returns 0 when nothing matched.
func InterestBoost(matchCount int, w InterestWeights) float64 {
	if matchCount <= 0 {
		return 0
	}
	return w.Base + math.Min(float64(matchCount)*w.PerMatch, w.MaxBonus)
}

// SimilarityBoost scales a cosine similarity into a rounded boost capped at weight.
// Non-positive similarities contribute nothing.
func SimilarityBoost(similarity, weight float64) float64 {
	if similarity <= 0 {
		return 0
	}
	return math.Round(math.Min(weight, similarity*weight))
}

// CappedLinear returns min(ceiling, count*per) for positive counts, 0 otherwise.
func CappedLinear(count int, per, ceiling float64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(ceiling, float64(count)*per)
}

// CappedLog returns min(ceiling, log10(metric+1)*scale) for positive metrics, 0 otherwise.
func CappedLog(metric, scale, ceiling float64) float64 {
	if metric <= 0 {
		return 0
	}
	return math.Min(ceiling, math.Log10(metric+1)*scale)
}

// RecencyDecay computes max(0, Max - hours*DecayPerHour).
// Negative ages (timestamps in the future) are treated as zero.
func RecencyDecay(age time.Duration, w RecencyWeights) float64 {
	if age < 0 {
		age = 0
	}
	return math.Max(0, w.Max-age.Hours()*w.DecayPerHour)
}

// ValueAdjustment computes the value-score boost and the low-value penalty
// magnitude. Total and confidence are clamped to [0, 1] first.
//
// boost   = total * Boost * max(MinConfidence, confidence)
// penalty = (PenaltyThreshold - total) * PenaltyScale, only when total < PenaltyThreshold
func ValueAdjustment(total, confidence float64, w ValueWeights) (boost, penalty float64) {
	total = Clamp01(total)
	confidence = Clamp01(confidence)

	boost = total * w.Boost * math.Max(w.MinConfidence, confidence)
	if total < w.PenaltyThreshold {
		penalty = (w.PenaltyThreshold - total) * w.PenaltyScale
	}
	return boost, penalty
}

// Clamp01 clamps v to [0, 1]. NaN clamps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
