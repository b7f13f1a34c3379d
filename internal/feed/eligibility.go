package feed

import (
	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/user"
)

// IsEligible decides whether c may be shown to viewer at all, independent of ranking.
// Rules are evaluated in order and the first decisive rule wins:
//
//  1. the viewer's own chirps are never eligible
//  2. unless relaxMuted is set, chirps matching a muted topic are not eligible
//  3. forAll chirps are eligible
//  4. tuned chirps are eligible when the audience admits followers or non-followers
//     and the viewer is one, or when the target audience embedding is at least
//     SemanticSimilarityThreshold similar to the viewer's profile embedding
//  5. any other reach mode is eligible
func (e *Engine) IsEligible(c *chirp.Chirp, viewer *user.User, cfg ResolvedConfig, relaxMuted bool) bool {
	if c == nil || viewer == nil {
		return false
	}
	if c.AuthorID == viewer.ID {
		return false
	}
	if !relaxMuted && MatchesTopics(c, cfg.MutedTopics) {
		return false
	}

	switch c.ReachMode {
	case chirp.ReachForAll:
		return true
	case chirp.ReachTuned:
		return e.tunedEligible(c, viewer, cfg)
	default:
		return true
	}
}

func (e *Engine) tunedEligible(c *chirp.Chirp, viewer *user.User, cfg ResolvedConfig) bool {
	audience := c.TunedAudience
	if audience == nil {
		e.diagnostics.TunedAudienceMissing(c, viewer)
		return false
	}

	following := viewer.Follows(c.AuthorID)
	if audience.AllowFollowers && following {
		return true
	}
	if audience.AllowNonFollowers && !following {
		return true
	}

	if len(audience.TargetAudienceEmbedding) > 0 && len(viewer.ProfileEmbedding) > 0 {
		similarity := e.similarity(audience.TargetAudienceEmbedding, viewer.ProfileEmbedding)
		if similarity >= cfg.SemanticSimilarityThreshold {
			return true
		}
	}

	e.diagnostics.TunedAudienceExcluded(c, viewer)
	return false
}
