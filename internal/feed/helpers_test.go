package feed

import (
	"time"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/user"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with a fixed clock and recorded diagnostics.
func newTestEngine() (*Engine, *recordingDiagnostics) {
	diag := &recordingDiagnostics{}
	e := NewEngine(EngineConfig{
		Diagnostics: diag,
		Now:         func() time.Time { return testNow },
	})
	return e, diag
}

// newChirp builds a forAll chirp created age before testNow.
func newChirp(id, authorID string, age time.Duration) *chirp.Chirp {
	return &chirp.Chirp{
		ID:        id,
		AuthorID:  authorID,
		ReachMode: chirp.ReachForAll,
		CreatedAt: testNow.Add(-age),
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

type recordingDiagnostics struct {
	missing  []string
	excluded []string
}

func (r *recordingDiagnostics) TunedAudienceMissing(c *chirp.Chirp, _ *user.User) {
	r.missing = append(r.missing, c.ID)
}

func (r *recordingDiagnostics) TunedAudienceExcluded(c *chirp.Chirp, _ *user.User) {
	r.excluded = append(r.excluded, c.ID)
}

func ids(scores []ChirpScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Chirp.ID
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
