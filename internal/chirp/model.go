// Package chirp provides the chirp (post) model, fact-check moderation statuses,
// and repositories supplying the candidate pool for feed generation.
package chirp

import (
	"errors"
	"time"
)

// Common errors for chirp operations.
var (
	ErrChirpNotFound     = errors.New("chirp not found")
	ErrMissingAuthor     = errors.New("chirp author is required")
	ErrInvalidReachMode  = errors.New("invalid reach mode: must be forAll or tuned")
	ErrInvalidValueScore = errors.New("invalid value score: total and confidence must be between 0.0 and 1.0")
)

// ReachMode controls who may be shown a chirp.
type ReachMode string

const (
	// ReachForAll opens the chirp to every viewer.
	ReachForAll ReachMode = "forAll"
	// ReachTuned restricts the chirp to the audience described by TunedAudience.
	ReachTuned ReachMode = "tuned"
)

// TunedAudience is the targeting rule attached to a tuned chirp.
type TunedAudience struct {
	AllowFollowers    bool `json:"allow_followers"`
	AllowNonFollowers bool `json:"allow_non_followers"`

	// TargetAudienceEmbedding describes the intended audience semantically.
	// Nil means no semantic target.
	TargetAudienceEmbedding []float64 `json:"target_audience_embedding,omitempty"`
}

// ValueScore is an externally computed quality signal.
type ValueScore struct {
	Total      float64 `json:"total"`      // [0, 1]
	Confidence float64 `json:"confidence"` // [0, 1]
}

// PredictionValidation carries the result of engagement-gaming checks.
type PredictionValidation struct {
	FlaggedForReview bool `json:"flagged_for_review"`
}

// Chirp represents a short post ranked by the For You feed.
// All ranking inputs (engagement, embeddings, moderation verdicts) are precomputed.
type Chirp struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Text     string `json:"text"`
	Topic    string `json:"topic,omitempty"` // legacy single topic tag

	SemanticTopics []string       `json:"semantic_topics,omitempty"`
	ReachMode      ReachMode      `json:"reach_mode"`
	TunedAudience  *TunedAudience `json:"tuned_audience,omitempty"`

	BookmarkCount int `json:"bookmark_count"`
	RechirpCount  int `json:"rechirp_count"`
	CommentCount  int `json:"comment_count"`

	// Quality-weighted engagement. Nil means not computed yet.
	QualityWeightedBookmarkScore *float64 `json:"quality_weighted_bookmark_score,omitempty"`
	QualityWeightedRechirpScore  *float64 `json:"quality_weighted_rechirp_score,omitempty"`
	QualityWeightedCommentScore  *float64 `json:"quality_weighted_comment_score,omitempty"`

	FactCheckStatus      FactCheckStatus       `json:"fact_check_status"`
	ValueScore           *ValueScore           `json:"value_score,omitempty"`
	PredictionValidation *PredictionValidation `json:"prediction_validation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a writer is responsible for.
func (c *Chirp) Validate() error {
	if c.AuthorID == "" {
		return ErrMissingAuthor
	}
	switch c.ReachMode {
	case ReachForAll, ReachTuned:
	default:
		return ErrInvalidReachMode
	}
	if err := ValidateFactCheckStatus(c.FactCheckStatus); err != nil {
		return err
	}
	if v := c.ValueScore; v != nil {
		if v.Total < 0 || v.Total > 1 || v.Confidence < 0 || v.Confidence > 1 {
			return ErrInvalidValueScore
		}
	}
	return nil
}

// IsFlaggedForReview reports whether gaming detection flagged this chirp.
func (c *Chirp) IsFlaggedForReview() bool {
	return c.PredictionValidation != nil && c.PredictionValidation.FlaggedForReview
}

// Float64 returns a pointer to v. Handy for the optional quality scores.
func Float64(v float64) *float64 {
	return &v
}
