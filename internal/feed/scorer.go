package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/ranking"
	"github.com/onnwee/chirpfeed/internal/user"
)

// Explanations used when no personalized reason applies.
const (
	explanationPrefix   = "Because: "
	explanationDefault  = "Because: recent post"
	explanationFallback = "Recent post (fallback)"
)

// ChirpScore is one ranked chirp. Scores are unbounded and may be negative.
type ChirpScore struct {
	Chirp       *chirp.Chirp `json:"chirp"`
	Score       float64      `json:"score"`
	Explanation string       `json:"explanation"`
}

// Score computes the relevance of c for viewer as of the engine's clock.
//
// allPosts is accepted so collaborators that need the whole candidate pool
// share one signature; no built-in signal reads it.
func (e *Engine) Score(c *chirp.Chirp, viewer *user.User, cfg ResolvedConfig, allPosts []*chirp.Chirp, lookup user.AuthorLookup) ChirpScore {
	if c == nil || viewer == nil {
		return ChirpScore{Chirp: c, Explanation: explanationDefault}
	}
	return e.score(c, viewer, cfg, lookup, e.now())
}

// score sums the independent signals in a fixed order. Each signal that fires
// appends its reason so the explanation reads in evaluation order.
func (e *Engine) score(c *chirp.Chirp, viewer *user.User, cfg ResolvedConfig, lookup user.AuthorLookup, now time.Time) ChirpScore {
	w := e.weights
	var (
		total   float64
		reasons []string
	)

	if viewer.Follows(c.AuthorID) {
		if boost := ranking.FollowingBoost(string(cfg.FollowingWeight), w.Following); boost > 0 {
			total += boost
			reasons = append(reasons, "you follow @"+authorHandle(c.AuthorID, lookup))
		}
	}

	if len(viewer.Interests) > 0 && len(c.SemanticTopics) > 0 {
		if n := countInterestMatches(c.SemanticTopics, viewer.Interests); n > 0 {
			total += ranking.InterestBoost(n, w.Interest)
			reasons = append(reasons, "matches your interests")
		}
	}

	if c.TunedAudience != nil && len(c.TunedAudience.TargetAudienceEmbedding) > 0 && len(viewer.ProfileEmbedding) > 0 {
		similarity := e.similarity(viewer.ProfileEmbedding, c.TunedAudience.TargetAudienceEmbedding)
		if boost := ranking.SimilarityBoost(similarity, w.ProfileSimilarity); boost > 0 {
			total += boost
			reasons = append(reasons, "similar to your profile")
		}
	}

	if MatchesTopics(c, cfg.LikedTopics) {
		total += w.Topic.Liked
		reasons = append(reasons, "topic you like")
	}
	if MatchesTopics(c, cfg.MutedTopics) {
		total -= w.Topic.Muted
		reasons = append(reasons, "muted topic")
	}

	if c.BookmarkCount > 0 {
		total += ranking.CappedLinear(c.BookmarkCount, w.Engagement.BookmarkPer, w.Engagement.BookmarkCap)
		reasons = append(reasons, fmt.Sprintf("bookmarked %d times", c.BookmarkCount))
	}
	if q := c.QualityWeightedBookmarkScore; q != nil && *q > 0 {
		total += *q * w.Engagement.QualityBookmark
		reasons = append(reasons, "high-quality bookmarks")
	}
	if c.RechirpCount > 0 {
		total += ranking.CappedLog(float64(c.RechirpCount), w.Engagement.RechirpLogScale, w.Engagement.RechirpCap)
		reasons = append(reasons, fmt.Sprintf("rechirped %d times", c.RechirpCount))
	}
	if q := c.QualityWeightedRechirpScore; q != nil && *q > 0 {
		total += *q * w.Engagement.QualityRechirp
		reasons = append(reasons, "high-quality rechirps")
	}

	if cfg.BoostActiveConversations {
		metric := float64(c.CommentCount)
		if q := c.QualityWeightedCommentScore; q != nil {
			metric = *q * w.Engagement.CommentQualityScale
		}
		if boost := ranking.CappedLog(metric, w.Engagement.ConversationLogScale, w.Engagement.ConversationCap); boost > 0 {
			total += boost
			reasons = append(reasons, "active conversation")
		}
	}

	total += ranking.RecencyDecay(now.Sub(c.CreatedAt), w.Recency)

	if v := c.ValueScore; v != nil {
		boost, penalty := ranking.ValueAdjustment(v.Total, v.Confidence, w.Value)
		total += boost - penalty
		if ranking.Clamp01(v.Total) >= w.Value.HighThreshold {
			reasons = append(reasons, "high value")
		}
		if penalty > 0 {
			reasons = append(reasons, "low value content")
		}
	}

	switch {
	case c.IsBlocked():
		total -= w.Moderation.Blocked
		reasons = append(reasons, "blocked by fact-check")
	case c.NeedsReview():
		total -= w.Moderation.NeedsReview
		reasons = append(reasons, "needs fact-check review")
	}

	if c.IsFlaggedForReview() {
		total -= w.Moderation.Flagged
		reasons = append(reasons, "flagged for review")
	}

	return ChirpScore{
		Chirp:       c,
		Score:       total,
		Explanation: explain(reasons),
	}
}

func explain(reasons []string) string {
	if len(reasons) == 0 {
		return explanationDefault
	}
	return explanationPrefix + strings.Join(reasons, " + ")
}

// authorHandle resolves the display handle, falling back to the raw author ID.
func authorHandle(authorID string, lookup user.AuthorLookup) string {
	if lookup != nil {
		if p, ok := lookup(authorID); ok && p.Handle != "" {
			return p.Handle
		}
	}
	return authorID
}
