package feed

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/user"
)

const scoreEpsilon = 1e-9

func TestScore_FollowedHeavyAuthor(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer", Following: []string{"author-a"}}
	c := newChirp("c1", "author-a", time.Hour)
	lookup := user.LookupFromProfiles(map[string]*user.AuthorProfile{
		"author-a": {ID: "author-a", Handle: "alice"},
	})

	got := e.Score(c, viewer, (&Config{FollowingWeight: FollowingHeavy}).Resolve(), nil, lookup)

	if math.Abs(got.Score-64.5) > scoreEpsilon {
		t.Errorf("expected score 64.5, got %v", got.Score)
	}
	if got.Explanation != "Because: you follow @alice" {
		t.Errorf("unexpected explanation %q", got.Explanation)
	}
	if got.Chirp != c {
		t.Error("score should reference the scored chirp")
	}
}

func TestScore_BlockedByFactCheck(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer"}
	c := newChirp("c1", "author", time.Hour)
	c.FactCheckStatus = chirp.FactCheckBlocked

	got := e.Score(c, viewer, ResolvedConfig{}, nil, nil)

	if math.Abs(got.Score-(14.5-50)) > scoreEpsilon {
		t.Errorf("expected score -35.5, got %v", got.Score)
	}
	if !strings.Contains(got.Explanation, "blocked by fact-check") {
		t.Errorf("expected fact-check reason, got %q", got.Explanation)
	}
}

func TestScore_HandleFallsBackToAuthorID(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer", Following: []string{"ghost"}}
	c := newChirp("c1", "ghost", time.Hour)

	got := e.Score(c, viewer, (&Config{}).Resolve(), nil, user.LookupFromProfiles(nil))
	if got.Explanation != "Because: you follow @ghost" {
		t.Errorf("unexpected explanation %q", got.Explanation)
	}
	if math.Abs(got.Score-44.5) > scoreEpsilon {
		t.Errorf("expected medium follow boost 30 + 14.5, got %v", got.Score)
	}
}

func TestScore_NoReasons(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer", Following: []string{"author"}}
	c := newChirp("c1", "author", 48*time.Hour)

	got := e.Score(c, viewer, (&Config{FollowingWeight: FollowingNone}).Resolve(), nil, nil)
	if got.Score != 0 {
		t.Errorf("expected 0, got %v", got.Score)
	}
	if got.Explanation != "Because: recent post" {
		t.Errorf("unexpected explanation %q", got.Explanation)
	}
}

func TestScore_Signals(t *testing.T) {
	// Chirps are 40 hours old so recency contributes nothing.
	const age = 40 * time.Hour

	tests := []struct {
		name       string
		viewer     *user.User
		cfg        *Config
		mutate     func(c *chirp.Chirp)
		wantScore  float64
		wantReason string
	}{
		{
			name:       "interest match",
			viewer:     &user.User{ID: "viewer", Interests: []string{"go", "jazz"}},
			mutate:     func(c *chirp.Chirp) { c.SemanticTopics = []string{"golang", "jazz", "cooking"} },
			wantScore:  40,
			wantReason: "matches your interests",
		},
		{
			name:   "profile similarity",
			viewer: &user.User{ID: "viewer", ProfileEmbedding: []float64{1, 0}},
			mutate: func(c *chirp.Chirp) {
				c.TunedAudience = &chirp.TunedAudience{TargetAudienceEmbedding: []float64{0.6, 0.8}}
			},
			wantScore:  21,
			wantReason: "similar to your profile",
		},
		{
			name:       "liked topic",
			cfg:        &Config{LikedTopics: []string{"go"}},
			mutate:     func(c *chirp.Chirp) { c.Topic = "golang" },
			wantScore:  25,
			wantReason: "topic you like",
		},
		{
			name:       "muted topic",
			cfg:        &Config{MutedTopics: []string{"crypto"}},
			mutate:     func(c *chirp.Chirp) { c.SemanticTopics = []string{"Crypto"} },
			wantScore:  -100,
			wantReason: "muted topic",
		},
		{
			name:       "bookmarks",
			mutate:     func(c *chirp.Chirp) { c.BookmarkCount = 4 },
			wantScore:  12,
			wantReason: "bookmarked 4 times",
		},
		{
			name:       "bookmarks capped",
			mutate:     func(c *chirp.Chirp) { c.BookmarkCount = 40 },
			wantScore:  25,
			wantReason: "bookmarked 40 times",
		},
		{
			name:       "quality bookmarks",
			mutate:     func(c *chirp.Chirp) { c.QualityWeightedBookmarkScore = chirp.Float64(0.5) },
			wantScore:  10,
			wantReason: "high-quality bookmarks",
		},
		{
			name:       "rechirps",
			mutate:     func(c *chirp.Chirp) { c.RechirpCount = 9 },
			wantScore:  8,
			wantReason: "rechirped 9 times",
		},
		{
			name:       "quality rechirps",
			mutate:     func(c *chirp.Chirp) { c.QualityWeightedRechirpScore = chirp.Float64(0.4) },
			wantScore:  6,
			wantReason: "high-quality rechirps",
		},
		{
			name:       "active conversation from comment count",
			mutate:     func(c *chirp.Chirp) { c.CommentCount = 99 },
			wantScore:  10,
			wantReason: "active conversation",
		},
		{
			name: "active conversation prefers quality score",
			mutate: func(c *chirp.Chirp) {
				c.CommentCount = 99
				c.QualityWeightedCommentScore = chirp.Float64(0.09)
			},
			wantScore:  5,
			wantReason: "active conversation",
		},
		{
			name:      "conversation boost disabled",
			cfg:       &Config{BoostActiveConversations: ptr(false)},
			mutate:    func(c *chirp.Chirp) { c.CommentCount = 99 },
			wantScore: 0,
		},
		{
			name:       "high value",
			mutate:     func(c *chirp.Chirp) { c.ValueScore = &chirp.ValueScore{Total: 0.75, Confidence: 0.8} },
			wantScore:  24,
			wantReason: "high value",
		},
		{
			name:       "low value penalty",
			mutate:     func(c *chirp.Chirp) { c.ValueScore = &chirp.ValueScore{Total: 0.25, Confidence: 1} },
			wantScore:  10 - 3,
			wantReason: "low value content",
		},
		{
			name:       "needs review",
			mutate:     func(c *chirp.Chirp) { c.FactCheckStatus = chirp.FactCheckNeedsReview },
			wantScore:  -20,
			wantReason: "needs fact-check review",
		},
		{
			name: "flagged for gaming",
			mutate: func(c *chirp.Chirp) {
				c.PredictionValidation = &chirp.PredictionValidation{FlaggedForReview: true}
			},
			wantScore:  -15,
			wantReason: "flagged for review",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine()
			viewer := tt.viewer
			if viewer == nil {
				viewer = &user.User{ID: "viewer"}
			}
			c := newChirp("c1", "author", age)
			tt.mutate(c)

			got := e.Score(c, viewer, tt.cfg.Resolve(), nil, nil)
			if math.Abs(got.Score-tt.wantScore) > 1e-6 {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			want := "Because: recent post"
			if tt.wantReason != "" {
				want = "Because: " + tt.wantReason
			}
			if got.Explanation != want {
				t.Errorf("explanation = %q, want %q", got.Explanation, want)
			}
		})
	}
}

func TestScore_ReasonOrder(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer", Following: []string{"author"}, Interests: []string{"go"}}
	c := newChirp("c1", "author", time.Hour)
	c.SemanticTopics = []string{"golang"}
	c.BookmarkCount = 2
	c.FactCheckStatus = chirp.FactCheckNeedsReview

	got := e.Score(c, viewer, (&Config{LikedTopics: []string{"golang"}}).Resolve(), nil, nil)

	want := "Because: you follow @author + matches your interests + topic you like + bookmarked 2 times + needs fact-check review"
	if got.Explanation != want {
		t.Errorf("explanation = %q, want %q", got.Explanation, want)
	}
	// 30 follow + 35 interest + 25 liked + 6 bookmarks + 14.5 recency - 20 review
	if math.Abs(got.Score-90.5) > scoreEpsilon {
		t.Errorf("score = %v, want 90.5", got.Score)
	}
}

func TestScore_FutureTimestampGetsFullRecency(t *testing.T) {
	e, _ := newTestEngine()
	c := newChirp("c1", "author", -2*time.Hour)

	got := e.Score(c, &user.User{ID: "viewer"}, ResolvedConfig{}, nil, nil)
	if got.Score != 15 {
		t.Errorf("expected recency capped at 15, got %v", got.Score)
	}
}
