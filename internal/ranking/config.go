package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrNegativeWeight is returned when a calibrated weight is below zero.
var ErrNegativeWeight = errors.New("ranking weights must not be negative")

// FollowingWeights maps the viewer's following-weight tier to a flat boost.
type FollowingWeights struct {
	None   float64 `json:"none"`   // default: 0
	Light  float64 `json:"light"`  // default: 10
	Medium float64 `json:"medium"` // default: 30
	Heavy  float64 `json:"heavy"`  // default: 50
}

// InterestWeights defines the interest-match boost: Base + min(PerMatch*matches, MaxBonus).
type InterestWeights struct {
	Base     float64 `json:"base"`      // default: 30
	PerMatch float64 `json:"per_match"` // default: 5
	MaxBonus float64 `json:"max_bonus"` // default: 25
}

// TopicWeights defines liked/muted topic adjustments.
type TopicWeights struct {
	Liked float64 `json:"liked"` // Boost for a liked topic (default: 25)
	Muted float64 `json:"muted"` // Penalty magnitude for a muted topic (default: 100)
}

// EngagementWeights defines the bookmark, rechirp and conversation signals.
type EngagementWeights struct {
	BookmarkPer          float64 `json:"bookmark_per"`           // default: 3 per bookmark
	BookmarkCap          float64 `json:"bookmark_cap"`           // default: 25
	QualityBookmark      float64 `json:"quality_bookmark"`       // default: 20
	RechirpLogScale      float64 `json:"rechirp_log_scale"`      // default: 8
	RechirpCap           float64 `json:"rechirp_cap"`            // default: 20
	QualityRechirp       float64 `json:"quality_rechirp"`        // default: 15
	ConversationLogScale float64 `json:"conversation_log_scale"` // default: 5
	ConversationCap      float64 `json:"conversation_cap"`       // default: 20
	CommentQualityScale  float64 `json:"comment_quality_scale"`  // default: 100
}

// RecencyWeights defines the linear recency decay: max(0, Max - hours*DecayPerHour).
type RecencyWeights struct {
	Max          float64 `json:"max"`            // default: 15
	DecayPerHour float64 `json:"decay_per_hour"` // default: 0.5
}

// ValueWeights defines the value-score boost and low-value penalty.
type ValueWeights struct {
	Boost            float64 `json:"boost"`             // default: 40
	MinConfidence    float64 `json:"min_confidence"`    // default: 0.5
	PenaltyThreshold float64 `json:"penalty_threshold"` // default: 0.35
	PenaltyScale     float64 `json:"penalty_scale"`     // default: 30
	HighThreshold    float64 `json:"high_threshold"`    // default: 0.7
}

// ModerationWeights defines penalty magnitudes for moderation outcomes.
type ModerationWeights struct {
	Blocked     float64 `json:"blocked"`      // default: 50
	NeedsReview float64 `json:"needs_review"` // default: 20
	Flagged     float64 `json:"flagged"`      // default: 15
}

// Weights holds every constant used by the For You signal scorer.
type Weights struct {
	Following         FollowingWeights  `json:"following"`
	Interest          InterestWeights   `json:"interest"`
	ProfileSimilarity float64           `json:"profile_similarity"` // default: 35
	Topic             TopicWeights      `json:"topic"`
	Engagement        EngagementWeights `json:"engagement"`
	Recency           RecencyWeights    `json:"recency"`
	Value             ValueWeights      `json:"value"`
	Moderation        ModerationWeights `json:"moderation"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configurations
}

// DefaultWeights returns the default For You signal weights.
//
// The largest positive contributions are following (up to 50), interest match
// (up to 55) and value score (up to 40). Moderation and muted topics are the only
// signals strong enough to push an otherwise fresh chirp below zero.
func DefaultWeights() *Weights {
	return &Weights{
		Following: FollowingWeights{
			None:   0,
			Light:  10,
			Medium: 30,
			Heavy:  50,
		},
		Interest: InterestWeights{
			Base:     30,
			PerMatch: 5,
			MaxBonus: 25,
		},
		ProfileSimilarity: 35,
		Topic: TopicWeights{
			Liked: 25,
			Muted: 100,
		},
		Engagement: EngagementWeights{
			BookmarkPer:          3,
			BookmarkCap:          25,
			QualityBookmark:      20,
			RechirpLogScale:      8,
			RechirpCap:           20,
			QualityRechirp:       15,
			ConversationLogScale: 5,
			ConversationCap:      20,
			CommentQualityScale:  100,
		},
		Recency: RecencyWeights{
			Max:          15,
			DecayPerHour: 0.5,
		},
		Value: ValueWeights{
			Boost:            40,
			MinConfidence:    0.5,
			PenaltyThreshold: 0.35,
			PenaltyScale:     30,
			HighThreshold:    0.7,
		},
		Moderation: ModerationWeights{
			Blocked:     50,
			NeedsReview: 20,
			Flagged:     15,
		},
	}
}

// weightField names one tunable value for merging and override logging.
type weightField struct {
	name string
	ptr  *float64
}

// fields lists every tunable value in a fixed order.
func (w *Weights) fields() []weightField {
	return []weightField{
		{"following.none", &w.Following.None},
		{"following.light", &w.Following.Light},
		{"following.medium", &w.Following.Medium},
		{"following.heavy", &w.Following.Heavy},
		{"interest.base", &w.Interest.Base},
		{"interest.per_match", &w.Interest.PerMatch},
		{"interest.max_bonus", &w.Interest.MaxBonus},
		{"profile_similarity", &w.ProfileSimilarity},
		{"topic.liked", &w.Topic.Liked},
		{"topic.muted", &w.Topic.Muted},
		{"engagement.bookmark_per", &w.Engagement.BookmarkPer},
		{"engagement.bookmark_cap", &w.Engagement.BookmarkCap},
		{"engagement.quality_bookmark", &w.Engagement.QualityBookmark},
		{"engagement.rechirp_log_scale", &w.Engagement.RechirpLogScale},
		{"engagement.rechirp_cap", &w.Engagement.RechirpCap},
		{"engagement.quality_rechirp", &w.Engagement.QualityRechirp},
		{"engagement.conversation_log_scale", &w.Engagement.ConversationLogScale},
		{"engagement.conversation_cap", &w.Engagement.ConversationCap},
		{"engagement.comment_quality_scale", &w.Engagement.CommentQualityScale},
		{"recency.max", &w.Recency.Max},
		{"recency.decay_per_hour", &w.Recency.DecayPerHour},
		{"value.boost", &w.Value.Boost},
		{"value.min_confidence", &w.Value.MinConfidence},
		{"value.penalty_threshold", &w.Value.PenaltyThreshold},
		{"value.penalty_scale", &w.Value.PenaltyScale},
		{"value.high_threshold", &w.Value.HighThreshold},
		{"moderation.blocked", &w.Moderation.Blocked},
		{"moderation.needs_review", &w.Moderation.NeedsReview},
		{"moderation.flagged", &w.Moderation.Flagged},
	}
}

// Validate checks that no weight is negative. Penalties are stored as
// magnitudes and subtracted by the scorer.
func (w *Weights) Validate() error {
	for _, f := range w.fields() {
		if *f.ptr < 0 {
			return fmt.Errorf("%s: %w", f.name, ErrNegativeWeight)
		}
	}
	return nil
}

// LoadCalibration loads signal weights from a JSON calibration file.
// An empty path returns the defaults. Partial configurations are merged with
// defaults; on any read, parse or validation error the defaults are returned
// together with the error so callers can log and continue.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("invalid calibration file, using defaults",
			"path", filePath,
			"error", err)
		return defaults, fmt.Errorf("invalid calibration file: %w", err)
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights onto base weights.
// Only non-zero values from the override are applied, so a calibration file
// cannot zero a weight out; set it to a tiny positive value instead.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		base = DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	target := result.fields()
	for i, f := range override.fields() {
		if *f.ptr != 0 {
			*target[i].ptr = *f.ptr
		}
	}
	return &result
}

// logCalibrationOverrides logs which weights differ from the defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	loadedFields := loaded.fields()
	for i, f := range defaults.fields() {
		if *loadedFields[i].ptr != *f.ptr {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f",
				f.name, *f.ptr, *loadedFields[i].ptr))
		}
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
