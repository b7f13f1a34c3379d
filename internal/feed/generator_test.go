package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/user"
)

func TestGenerate_NilViewer(t *testing.T) {
	e, _ := newTestEngine()
	res := e.Generate([]*chirp.Chirp{newChirp("c1", "a", time.Hour)}, nil, nil, nil, 10)
	if res.Items == nil || len(res.Items) != 0 {
		t.Errorf("expected empty non-nil items, got %v", res.Items)
	}
	if res.Outcome() != OutcomeEmpty {
		t.Errorf("expected outcome %q, got %q", OutcomeEmpty, res.Outcome())
	}
}

func TestGenerate_SelfExclusion(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer"}
	posts := []*chirp.Chirp{
		newChirp("mine-fresh", "viewer", time.Hour),
		newChirp("theirs", "other", time.Hour),
		newChirp("mine-old", "viewer", days(60)),
	}

	res := e.Generate(posts, viewer, nil, nil, 10)
	if diff := cmp.Diff([]string{"theirs"}, ids(res.Items)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	// The fallback path must exclude the viewer too.
	res = e.Generate([]*chirp.Chirp{newChirp("mine", "viewer", days(60)), newChirp("old", "other", days(60))}, viewer, nil, nil, 10)
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if diff := cmp.Diff([]string{"old"}, ids(res.Items)); diff != "" {
		t.Errorf("fallback (-want +got):\n%s", diff)
	}
}

func TestGenerate_LimitRespected(t *testing.T) {
	e, _ := newTestEngine()
	var posts []*chirp.Chirp
	for i := 0; i < 80; i++ {
		posts = append(posts, newChirp(fmt.Sprintf("c%d", i), fmt.Sprintf("author%d", i), time.Duration(i)*time.Minute))
	}
	viewer := &user.User{ID: "viewer"}

	if got := e.Generate(posts, viewer, nil, nil, 10).Items; len(got) != 10 {
		t.Errorf("expected 10 results, got %d", len(got))
	}
	if got := e.Generate(posts, viewer, nil, nil, 0).Items; len(got) != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, len(got))
	}
}

func TestGenerate_AuthorDiversity(t *testing.T) {
	e, _ := newTestEngine()
	var posts []*chirp.Chirp
	for i := 0; i < 120; i++ {
		posts = append(posts, newChirp(fmt.Sprintf("c%d", i), fmt.Sprintf("author%d", i%8), time.Duration(i)*time.Minute))
	}

	got := e.Generate(posts, &user.User{ID: "viewer"}, nil, nil, 50).Items

	firstTwenty := map[string]int{}
	overall := map[string]int{}
	for i, s := range got {
		if i < 20 {
			firstTwenty[s.Chirp.AuthorID]++
		}
		overall[s.Chirp.AuthorID]++
	}
	for author, n := range firstTwenty {
		if n > 3 {
			t.Errorf("author %s appears %d times in the first 20", author, n)
		}
	}
	for author, n := range overall {
		if n > 5 {
			t.Errorf("author %s appears %d times overall", author, n)
		}
	}
}

func TestGenerate_MonotonicWidening(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer"}

	t.Run("base window wins when it has results", func(t *testing.T) {
		posts := []*chirp.Chirp{
			newChirp("recent", "a", days(2)),
			newChirp("older", "b", days(9)),
		}
		res := e.Generate(posts, viewer, nil, nil, 10)
		if res.Window != 7 || res.Relaxed || res.Fallback {
			t.Errorf("expected strict window 7, got %+v", res)
		}
		if diff := cmp.Diff([]string{"recent"}, ids(res.Items)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("widens to first window with results", func(t *testing.T) {
		posts := []*chirp.Chirp{newChirp("twelve-days", "a", days(12))}
		res := e.Generate(posts, viewer, nil, nil, 10)
		if res.Window != 14 {
			t.Errorf("expected window 14, got %d", res.Window)
		}
		if res.Outcome() != OutcomeStrict {
			t.Errorf("expected strict outcome, got %q", res.Outcome())
		}
	})

	t.Run("configured base window", func(t *testing.T) {
		posts := []*chirp.Chirp{newChirp("two-days", "a", days(2))}
		res := e.Generate(posts, viewer, &Config{TimeWindowDays: ptr(1.0)}, nil, 10)
		if res.Window != 4 {
			t.Errorf("expected window 4 from ladder 1,4,..., got %d", res.Window)
		}
	})
}

func TestGenerate_RelaxedMuteBeforeWidening(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer"}
	muted := newChirp("muted", "a", days(1))
	muted.Topic = "crypto"
	posts := []*chirp.Chirp{muted, newChirp("clean-but-older", "b", days(9))}

	res := e.Generate(posts, viewer, &Config{MutedTopics: []string{"crypto"}}, nil, 10)

	if !res.Relaxed || res.Window != 7 {
		t.Fatalf("expected relaxed pass in window 7, got %+v", res)
	}
	if diff := cmp.Diff([]string{"muted"}, ids(res.Items)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if res.Items[0].Explanation != "Because: muted topic" {
		t.Errorf("unexpected explanation %q", res.Items[0].Explanation)
	}
}

func TestGenerate_TunedIneligibleTriggersWidening(t *testing.T) {
	e, diag := newTestEngine()
	viewer := &user.User{ID: "viewer"}

	closed := newChirp("closed", "a", time.Hour)
	closed.ReachMode = chirp.ReachTuned
	closed.TunedAudience = &chirp.TunedAudience{}
	open := newChirp("open", "b", days(12))

	res := e.Generate([]*chirp.Chirp{closed, open}, viewer, &Config{MutedTopics: []string{"crypto"}}, nil, 10)

	if res.Window != 14 || res.Relaxed {
		t.Errorf("expected strict window 14, got %+v", res)
	}
	if diff := cmp.Diff([]string{"open"}, ids(res.Items)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if len(diag.excluded) == 0 {
		t.Error("expected the closed tuned chirp to be reported")
	}
}

func TestGenerate_Fallback(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer", Following: []string{"a"}}
	posts := []*chirp.Chirp{
		newChirp("oldest", "a", days(90)),
		newChirp("old", "b", days(40)),
		newChirp("older", "c", days(45)),
	}

	res := e.Generate(posts, viewer, &Config{FollowingWeight: FollowingHeavy}, nil, 10)

	if !res.Fallback || res.Window != 0 {
		t.Fatalf("expected fallback, got %+v", res)
	}
	if res.Outcome() != OutcomeFallback {
		t.Errorf("expected outcome %q, got %q", OutcomeFallback, res.Outcome())
	}
	if diff := cmp.Diff([]string{"old", "older", "oldest"}, ids(res.Items)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	for _, s := range res.Items {
		if s.Score != 0 || s.Explanation != "Recent post (fallback)" {
			t.Errorf("unexpected fallback entry %+v", s)
		}
	}
}

func TestGenerate_EmptyPool(t *testing.T) {
	e, _ := newTestEngine()
	res := e.Generate(nil, &user.User{ID: "viewer"}, nil, nil, 10)
	if len(res.Items) != 0 {
		t.Errorf("expected no items, got %d", len(res.Items))
	}
	if res.Outcome() != OutcomeEmpty {
		t.Errorf("expected outcome %q, got %q", OutcomeEmpty, res.Outcome())
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	e, _ := newTestEngine()
	viewer := &user.User{ID: "viewer", Following: []string{"a0", "a3"}, Interests: []string{"go"}}
	var posts []*chirp.Chirp
	for i := 0; i < 40; i++ {
		c := newChirp(fmt.Sprintf("c%d", i), fmt.Sprintf("a%d", i%6), time.Duration(i)*3*time.Hour)
		c.BookmarkCount = i % 5
		if i%4 == 0 {
			c.SemanticTopics = []string{"golang"}
		}
		posts = append(posts, c)
	}
	cfg := &Config{LikedTopics: []string{"go"}}

	first := e.Generate(posts, viewer, cfg, nil, 20)
	second := e.Generate(posts, viewer, cfg, nil, 20)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ between identical calls (-first +second):\n%s", diff)
	}
}

func TestGenerate_TieBreakInOutput(t *testing.T) {
	e, _ := newTestEngine()
	older := newChirp("older", "a", 4*time.Hour) // recency 13
	older.BookmarkCount = 1                      // +3 => 16
	newer := newChirp("newer", "b", time.Hour)   // recency 14.5

	res := e.Generate([]*chirp.Chirp{older, newer}, &user.User{ID: "viewer"}, nil, nil, 10)
	if diff := cmp.Diff([]string{"newer", "older"}, ids(res.Items)); diff != "" {
		t.Errorf("near-tie should be ordered by recency (-want +got):\n%s", diff)
	}
}

func TestGenerateFeed_DefaultEngine(t *testing.T) {
	viewer := &user.User{ID: "viewer"}
	posts := []*chirp.Chirp{
		{ID: "c1", AuthorID: "a", ReachMode: chirp.ReachForAll, CreatedAt: time.Now().Add(-time.Hour)},
		{ID: "c2", AuthorID: "viewer", ReachMode: chirp.ReachForAll, CreatedAt: time.Now().Add(-time.Hour)},
	}

	got := GenerateFeed(posts, viewer, nil, nil, 0)
	if len(got) != 1 || got[0].Chirp.ID != "c1" {
		t.Errorf("expected only c1, got %v", ids(got))
	}
	if GenerateFeed(posts, nil, nil, nil, 0) == nil {
		t.Error("nil viewer should yield an empty, non-nil slice")
	}
}

func TestGenerate_Metrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	e := NewEngine(EngineConfig{
		Metrics: m,
		Now:     func() time.Time { return testNow },
	})
	viewer := &user.User{ID: "viewer"}

	closed := newChirp("closed", "a", time.Hour)
	closed.ReachMode = chirp.ReachTuned

	e.Generate([]*chirp.Chirp{newChirp("c1", "a", time.Hour)}, viewer, nil, nil, 10)
	e.Generate([]*chirp.Chirp{closed}, viewer, nil, nil, 10)
	e.Generate(nil, viewer, nil, nil, 10)

	if got := counterValue(t, m.generations, OutcomeStrict); got != 1 {
		t.Errorf("expected 1 strict generation, got %v", got)
	}
	if got := counterValue(t, m.generations, OutcomeFallback); got != 1 {
		t.Errorf("expected 1 fallback generation, got %v", got)
	}
	if got := counterValue(t, m.generations, OutcomeEmpty); got != 1 {
		t.Errorf("expected 1 empty generation, got %v", got)
	}
	// The closed chirp is evaluated once per window on the ladder.
	if got := counterValue(t, m.anomalies, AnomalyMissingAudience); got != 6 {
		t.Errorf("expected 6 missing-audience reports, got %v", got)
	}
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues() returned error: %v", err)
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}
	return m.GetCounter().GetValue()
}
