package feed

import (
	"errors"
	"math"
	"slices"

	"github.com/onnwee/chirpfeed/internal/user"
)

// FollowingWeight is how strongly followed authors are boosted.
type FollowingWeight string

const (
	FollowingNone   FollowingWeight = "none"
	FollowingLight  FollowingWeight = "light"
	FollowingMedium FollowingWeight = "medium"
	FollowingHeavy  FollowingWeight = "heavy"
)

// Configuration defaults and bounds.
const (
	DefaultTimeWindowDays              = 7
	MinTimeWindowDays                  = 1
	MaxTimeWindowDays                  = 30
	DefaultSemanticSimilarityThreshold = 0.7
	DefaultLimit                       = 50
)

// Validation errors for client-supplied configuration.
var (
	ErrInvalidFollowingWeight = errors.New("following weight must be one of none, light, medium, heavy")
	ErrInvalidTimeWindow      = errors.New("time window must be between 1 and 30 days")
	ErrInvalidThreshold       = errors.New("semantic similarity threshold must be between -1 and 1")
)

// Config is a viewer's For You configuration. Every field is optional;
// Resolve applies the defaults.
type Config struct {
	FollowingWeight             FollowingWeight `json:"following_weight,omitempty"`
	BoostActiveConversations    *bool           `json:"boost_active_conversations,omitempty"`
	LikedTopics                 []string        `json:"liked_topics,omitempty"`
	MutedTopics                 []string        `json:"muted_topics,omitempty"`
	TimeWindowDays              *float64        `json:"time_window_days,omitempty"`
	SemanticSimilarityThreshold *float64        `json:"semantic_similarity_threshold,omitempty"`
}

// ResolvedConfig is Config with every default applied.
type ResolvedConfig struct {
	FollowingWeight             FollowingWeight
	BoostActiveConversations    bool
	LikedTopics                 []string
	MutedTopics                 []string
	TimeWindowDays              int
	SemanticSimilarityThreshold float64
}

// Resolve applies defaults once. A nil Config resolves to all defaults.
//
// Unknown following weights resolve to medium. A time window that is missing,
// non-finite or not positive falls back to the default before being floored
// and clamped to [MinTimeWindowDays, MaxTimeWindowDays].
func (c *Config) Resolve() ResolvedConfig {
	r := ResolvedConfig{
		FollowingWeight:             FollowingMedium,
		BoostActiveConversations:    true,
		TimeWindowDays:              DefaultTimeWindowDays,
		SemanticSimilarityThreshold: DefaultSemanticSimilarityThreshold,
	}
	if c == nil {
		return r
	}

	if c.FollowingWeight.Valid() {
		r.FollowingWeight = c.FollowingWeight
	}
	if c.BoostActiveConversations != nil {
		r.BoostActiveConversations = *c.BoostActiveConversations
	}
	r.LikedTopics = c.LikedTopics
	r.MutedTopics = c.MutedTopics
	if c.TimeWindowDays != nil {
		r.TimeWindowDays = clampWindow(*c.TimeWindowDays)
	}
	if t := c.SemanticSimilarityThreshold; t != nil && !math.IsNaN(*t) && !math.IsInf(*t, 0) {
		r.SemanticSimilarityThreshold = *t
	}
	return r
}

// Validate rejects values a client should not be allowed to store.
// Resolve tolerates all of them.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.FollowingWeight != "" && !c.FollowingWeight.Valid() {
		return ErrInvalidFollowingWeight
	}
	if d := c.TimeWindowDays; d != nil && (math.IsNaN(*d) || *d < MinTimeWindowDays || *d > MaxTimeWindowDays) {
		return ErrInvalidTimeWindow
	}
	if t := c.SemanticSimilarityThreshold; t != nil && (math.IsNaN(*t) || *t < -1 || *t > 1) {
		return ErrInvalidThreshold
	}
	return nil
}

// Valid reports whether w is one of the known tiers.
func (w FollowingWeight) Valid() bool {
	switch w {
	case FollowingNone, FollowingLight, FollowingMedium, FollowingHeavy:
		return true
	}
	return false
}

// ConfigFromPreferences converts stored preferences into a Config.
// Nil preferences yield a nil Config, which resolves to defaults.
func ConfigFromPreferences(p *user.FeedPreferences) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		FollowingWeight:             FollowingWeight(p.FollowingWeight),
		BoostActiveConversations:    p.BoostActiveConversations,
		LikedTopics:                 slices.Clone(p.LikedTopics),
		MutedTopics:                 slices.Clone(p.MutedTopics),
		TimeWindowDays:              p.TimeWindowDays,
		SemanticSimilarityThreshold: p.SemanticSimilarityThreshold,
	}
}

// Preferences converts c into its stored form.
func (c *Config) Preferences() *user.FeedPreferences {
	if c == nil {
		return nil
	}
	return &user.FeedPreferences{
		FollowingWeight:             string(c.FollowingWeight),
		BoostActiveConversations:    c.BoostActiveConversations,
		LikedTopics:                 slices.Clone(c.LikedTopics),
		MutedTopics:                 slices.Clone(c.MutedTopics),
		TimeWindowDays:              c.TimeWindowDays,
		SemanticSimilarityThreshold: c.SemanticSimilarityThreshold,
	}
}

func clampWindow(days float64) int {
	if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
		days = DefaultTimeWindowDays
	}
	w := int(math.Floor(math.Min(days, MaxTimeWindowDays)))
	return max(w, MinTimeWindowDays)
}
