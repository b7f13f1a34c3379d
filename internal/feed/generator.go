package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/embedding"
	"github.com/onnwee/chirpfeed/internal/ranking"
	"github.com/onnwee/chirpfeed/internal/user"
)

// SimilarityFunc compares two embeddings. Higher is more similar.
type SimilarityFunc func(a, b []float64) float64

// EngineConfig configures an Engine. Zero values select defaults.
type EngineConfig struct {
	Weights     *ranking.Weights // default: ranking.DefaultWeights()
	Diagnostics Diagnostics      // default: LogDiagnostics on slog.Default()
	Similarity  SimilarityFunc   // default: embedding.CosineSimilarity
	Metrics     *Metrics         // optional
	Now         func() time.Time // default: time.Now
}

// Engine generates For You feeds. It is safe for concurrent use.
type Engine struct {
	weights     *ranking.Weights
	diagnostics Diagnostics
	similarity  SimilarityFunc
	metrics     *Metrics
	now         func() time.Time
}

// NewEngine creates an Engine, filling unset fields of cfg with defaults.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		weights:     cfg.Weights,
		diagnostics: cfg.Diagnostics,
		similarity:  cfg.Similarity,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
	}
	if e.weights == nil {
		e.weights = ranking.DefaultWeights()
	}
	if e.diagnostics == nil {
		e.diagnostics = NewLogDiagnostics(nil, cfg.Metrics)
	}
	if e.similarity == nil {
		e.similarity = embedding.CosineSimilarity
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Result is a generated feed plus how it was produced.
type Result struct {
	Items []ChirpScore

	// Window is the time window in days that produced Items. Zero for the
	// fallback and for empty results.
	Window int

	// Relaxed is true when muted topics were ignored to fill the feed.
	Relaxed bool

	// Fallback is true when no window produced results and Items is pure
	// recency ordering.
	Fallback bool
}

// Outcome classifies the result for metrics and logs.
func (r Result) Outcome() string {
	switch {
	case len(r.Items) == 0:
		return OutcomeEmpty
	case r.Fallback:
		return OutcomeFallback
	case r.Relaxed:
		return OutcomeRelaxed
	default:
		return OutcomeStrict
	}
}

// Generate builds the For You feed for viewer from allPosts.
//
// Windows are tried in ladder order. Within each window a strict pass runs
// first, then a pass that ignores muted topics. The first non-empty pass wins.
// If none succeeds, every non-self chirp is returned newest first with a zero
// score. A nil viewer yields an empty result; limit <= 0 means DefaultLimit.
func (e *Engine) Generate(allPosts []*chirp.Chirp, viewer *user.User, cfg *Config, lookup user.AuthorLookup, limit int) Result {
	start := time.Now()
	res := e.generate(allPosts, viewer, cfg, lookup, limit)
	e.metrics.ObserveGeneration(res, time.Since(start).Seconds())
	return res
}

func (e *Engine) generate(allPosts []*chirp.Chirp, viewer *user.User, cfg *Config, lookup user.AuthorLookup, limit int) Result {
	if viewer == nil {
		return Result{Items: []ChirpScore{}}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	resolved := cfg.Resolve()
	now := e.now()
	candidates := excludeAuthor(allPosts, viewer.ID)

	for window := range Windows(resolved.TimeWindowDays) {
		recent := createdAfter(candidates, now.Add(-time.Duration(window)*24*time.Hour))

		if items, ok := e.attemptWindow(recent, viewer, resolved, lookup, now, limit, false); ok {
			return Result{Items: items, Window: window}
		}
		// Without muted topics the relaxed pass would repeat the strict one.
		if len(resolved.MutedTopics) == 0 {
			continue
		}
		if items, ok := e.attemptWindow(recent, viewer, resolved, lookup, now, limit, true); ok {
			return Result{Items: items, Window: window, Relaxed: true}
		}
	}

	return Result{Items: fallback(candidates, limit), Fallback: true}
}

// attemptWindow scores, orders and diversity-limits the eligible chirps in
// recent. ok is false when nothing was eligible.
func (e *Engine) attemptWindow(recent []*chirp.Chirp, viewer *user.User, cfg ResolvedConfig, lookup user.AuthorLookup, now time.Time, limit int, relaxMuted bool) ([]ChirpScore, bool) {
	var scored []ChirpScore
	for _, c := range recent {
		if !e.IsEligible(c, viewer, cfg, relaxMuted) {
			continue
		}
		scored = append(scored, e.score(c, viewer, cfg, lookup, now))
	}
	if len(scored) == 0 {
		return nil, false
	}

	SortScores(scored)
	return LimitDiversity(scored, limit), true
}

// fallback orders candidates newest first with zero scores.
func fallback(candidates []*chirp.Chirp, limit int) []ChirpScore {
	ordered := make([]*chirp.Chirp, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	scored := make([]ChirpScore, len(ordered))
	for i, c := range ordered {
		scored[i] = ChirpScore{Chirp: c, Score: 0, Explanation: explanationFallback}
	}
	return LimitDiversity(scored, limit)
}

// excludeAuthor drops nil entries and chirps written by authorID.
func excludeAuthor(posts []*chirp.Chirp, authorID string) []*chirp.Chirp {
	out := make([]*chirp.Chirp, 0, len(posts))
	for _, c := range posts {
		if c != nil && c.AuthorID != authorID {
			out = append(out, c)
		}
	}
	return out
}

func createdAfter(posts []*chirp.Chirp, cutoff time.Time) []*chirp.Chirp {
	var out []*chirp.Chirp
	for _, c := range posts {
		if c.CreatedAt.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return NewEngine(EngineConfig{})
})

// GenerateFeed builds the For You feed with default weights, logging
// diagnostics to slog.Default().
func GenerateFeed(allPosts []*chirp.Chirp, viewer *user.User, cfg *Config, lookup user.AuthorLookup, limit int) []ChirpScore {
	return defaultEngine().Generate(allPosts, viewer, cfg, lookup, limit).Items
}

// IsEligible applies the eligibility rules with the default engine.
func IsEligible(c *chirp.Chirp, viewer *user.User, cfg *Config, relaxMuted bool) bool {
	return defaultEngine().IsEligible(c, viewer, cfg.Resolve(), relaxMuted)
}

// Score scores c for viewer with the default engine.
func Score(c *chirp.Chirp, viewer *user.User, cfg *Config, allPosts []*chirp.Chirp, lookup user.AuthorLookup) ChirpScore {
	return defaultEngine().Score(c, viewer, cfg.Resolve(), allPosts, lookup)
}
