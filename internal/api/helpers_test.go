package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/feed"
	"github.com/onnwee/chirpfeed/internal/middleware"
	"github.com/onnwee/chirpfeed/internal/user"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

const (
	viewerID = "viewer-id"
	aliceID  = "alice-id"
	bobID    = "bob-id"
)

type testStores struct {
	chirps *chirp.InMemoryRepository
	users  *user.InMemoryRepository
}

// newTestFeedHandlers seeds a viewer who follows alice, plus bob, and returns
// handlers whose engine runs on a fixed clock.
func newTestFeedHandlers(t *testing.T) (*FeedHandlers, testStores) {
	t.Helper()
	stores := testStores{
		chirps: chirp.NewInMemoryRepository(),
		users:  user.NewInMemoryRepository(),
	}

	ctx := context.Background()
	for _, u := range []*user.User{
		{ID: viewerID, Handle: "viewer", Following: []string{aliceID}},
		{ID: aliceID, Handle: "alice"},
		{ID: bobID, Handle: "bob"},
	} {
		if err := stores.users.Create(ctx, u); err != nil {
			t.Fatalf("failed to seed user %s: %v", u.ID, err)
		}
	}

	h := NewFeedHandlers(FeedHandlersConfig{
		Chirps: stores.chirps,
		Users:  stores.users,
		Engine: feed.NewEngine(feed.EngineConfig{
			Diagnostics: feed.NopDiagnostics{},
			Now:         func() time.Time { return testNow },
		}),
	})
	return h, stores
}

// seedChirp stores a forAll chirp created age before testNow.
func seedChirp(t *testing.T, repo *chirp.InMemoryRepository, id, authorID, topic string, age time.Duration) {
	t.Helper()
	c := &chirp.Chirp{
		ID:        id,
		AuthorID:  authorID,
		Text:      "chirp " + id,
		Topic:     topic,
		ReachMode: chirp.ReachForAll,
		CreatedAt: testNow.Add(-age),
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to seed chirp %s: %v", id, err)
	}
}

// asViewer attaches an authenticated viewer ID the way the auth middleware does.
func asViewer(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), id))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error body: %v, body: %s", err, rr.Body.String())
	}
	return resp
}

// forYouItem mirrors the wire form of feed.ChirpScore.
type forYouItem struct {
	Chirp struct {
		ID       string `json:"id"`
		AuthorID string `json:"author_id"`
	} `json:"chirp"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type forYouBody struct {
	Items      []forYouItem `json:"items"`
	WindowDays int          `json:"window_days"`
	Relaxed    bool         `json:"relaxed"`
	Fallback   bool         `json:"fallback"`
}

func decodeForYou(t *testing.T, rr *httptest.ResponseRecorder) forYouBody {
	t.Helper()
	var body forYouBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse feed body: %v, body: %s", err, rr.Body.String())
	}
	return body
}

func itemIDs(items []forYouItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Chirp.ID
	}
	return out
}
