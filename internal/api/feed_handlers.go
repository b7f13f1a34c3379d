package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chirpfeed/internal/chirp"
	"github.com/onnwee/chirpfeed/internal/feed"
	"github.com/onnwee/chirpfeed/internal/middleware"
	"github.com/onnwee/chirpfeed/internal/tracing"
	"github.com/onnwee/chirpfeed/internal/user"
	"github.com/onnwee/chirpfeed/internal/validate"
)

// Feed request bounds.
const (
	// MaxFeedLimit is the largest page a client may request.
	MaxFeedLimit = 200

	// DefaultCandidatePoolSize is how many recent chirps are ranked per request.
	DefaultCandidatePoolSize = 1000

	maxConfigBodyBytes = 64 << 10
)

// FeedHandlers holds dependencies for the For You feed endpoints.
type FeedHandlers struct {
	chirps       chirp.Repository
	users        user.Repository
	engine       *feed.Engine
	defaultLimit int
	poolSize     int
}

// FeedHandlersConfig configures FeedHandlers. Zero limits use the defaults.
type FeedHandlersConfig struct {
	Chirps            chirp.Repository
	Users             user.Repository
	Engine            *feed.Engine
	DefaultLimit      int
	CandidatePoolSize int
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(cfg FeedHandlersConfig) *FeedHandlers {
	h := &FeedHandlers{
		chirps:       cfg.Chirps,
		users:        cfg.Users,
		engine:       cfg.Engine,
		defaultLimit: cfg.DefaultLimit,
		poolSize:     cfg.CandidatePoolSize,
	}
	if h.engine == nil {
		h.engine = feed.NewEngine(feed.EngineConfig{})
	}
	if h.defaultLimit <= 0 {
		h.defaultLimit = feed.DefaultLimit
	}
	if h.poolSize <= 0 {
		h.poolSize = DefaultCandidatePoolSize
	}
	return h
}

// ForYouResponse is the body of GET /feed/for-you.
type ForYouResponse struct {
	Items      []feed.ChirpScore `json:"items"`
	WindowDays int               `json:"window_days"`
	Relaxed    bool              `json:"relaxed"`
	Fallback   bool              `json:"fallback"`
}

// EffectiveConfig is a viewer's configuration with every default applied.
type EffectiveConfig struct {
	FollowingWeight             feed.FollowingWeight `json:"following_weight"`
	BoostActiveConversations    bool                 `json:"boost_active_conversations"`
	LikedTopics                 []string             `json:"liked_topics"`
	MutedTopics                 []string             `json:"muted_topics"`
	TimeWindowDays              int                  `json:"time_window_days"`
	SemanticSimilarityThreshold float64              `json:"semantic_similarity_threshold"`
}

// FeedConfigResponse is the body of GET and PUT /feed/config.
type FeedConfigResponse struct {
	Stored    *feed.Config    `json:"stored"`
	Effective EffectiveConfig `json:"effective"`
}

// GetForYou handles GET /feed/for-you.
//
// The viewer's stored preferences are the base configuration. Query
// parameters window_days, following_weight, muted, liked, threshold and
// boost_conversations override them for this request only.
func (h *FeedHandlers) GetForYou(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r.URL.Query().Get("limit"), h.defaultLimit)
	if err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	viewer, ok := h.loadViewer(w, r)
	if !ok {
		return
	}

	cfg, err := applyOverrides(feed.ConfigFromPreferences(viewer.FeedPreferences), r.URL.Query())
	if err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	candidates, err := h.chirps.ListRecent(ctx, h.poolSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list candidate chirps", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load feed")
		return
	}

	lookup, err := h.authorLookup(ctx, candidates)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load author profiles", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load feed")
		return
	}

	spanCtx, endSpan := tracing.StartSpan(ctx, "feed.generate",
		attribute.Int("feed.candidates", len(candidates)),
		attribute.Int("feed.limit", limit),
	)
	res := h.engine.Generate(candidates, viewer, cfg, lookup, limit)
	tracing.SetAttributes(spanCtx,
		attribute.Int("feed.window_days", res.Window),
		attribute.Int("feed.results", len(res.Items)),
		attribute.String("feed.outcome", res.Outcome()),
	)
	endSpan(nil)

	slog.DebugContext(ctx, "generated for you feed",
		"viewer_id", viewer.ID,
		"candidates", len(candidates),
		"results", len(res.Items),
		"window_days", res.Window,
		"outcome", res.Outcome(),
	)

	writeJSON(w, ctx, http.StatusOK, ForYouResponse{
		Items:      res.Items,
		WindowDays: res.Window,
		Relaxed:    res.Relaxed,
		Fallback:   res.Fallback,
	})
}

// GetFeedConfig handles GET /feed/config.
func (h *FeedHandlers) GetFeedConfig(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.loadViewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, newFeedConfigResponse(feed.ConfigFromPreferences(viewer.FeedPreferences)))
}

// PutFeedConfig handles PUT /feed/config. The body replaces the stored
// configuration; omitted fields fall back to defaults.
func (h *FeedHandlers) PutFeedConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID := middleware.GetUserID(ctx)
	if viewerID == "" {
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var cfg feed.Config
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body")
		return
	}
	if err := validateConfigBody(&cfg); err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := h.users.UpdateFeedPreferences(ctx, viewerID, cfg.Preferences()); err != nil {
		h.writeUserError(w, ctx, err, "failed to update feed preferences")
		return
	}

	slog.InfoContext(ctx, "feed preferences updated", "viewer_id", viewerID)
	writeJSON(w, ctx, http.StatusOK, newFeedConfigResponse(&cfg))
}

// DeleteFeedConfig handles DELETE /feed/config, resetting the viewer to defaults.
func (h *FeedHandlers) DeleteFeedConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID := middleware.GetUserID(ctx)
	if viewerID == "" {
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}
	if err := h.users.UpdateFeedPreferences(ctx, viewerID, nil); err != nil {
		h.writeUserError(w, ctx, err, "failed to reset feed preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadViewer fetches the authenticated viewer, writing the error response
// itself when it cannot.
func (h *FeedHandlers) loadViewer(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	ctx := r.Context()

	viewerID := middleware.GetUserID(ctx)
	if viewerID == "" {
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return nil, false
	}

	viewer, err := h.users.GetByID(ctx, viewerID)
	if err != nil {
		h.writeUserError(w, ctx, err, "failed to load viewer")
		return nil, false
	}
	return viewer, true
}

func (h *FeedHandlers) writeUserError(w http.ResponseWriter, ctx context.Context, err error, logMsg string) {
	if errors.Is(err, user.ErrUserNotFound) {
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Viewer not found")
		return
	}
	slog.ErrorContext(ctx, logMsg, "error", err)
	WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
}

// authorLookup resolves the handles of every author in candidates with one
// store round trip.
func (h *FeedHandlers) authorLookup(ctx context.Context, candidates []*chirp.Chirp) (user.AuthorLookup, error) {
	seen := make(map[string]struct{}, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if _, ok := seen[c.AuthorID]; ok {
			continue
		}
		seen[c.AuthorID] = struct{}{}
		ids = append(ids, c.AuthorID)
	}

	profiles, err := h.users.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	return user.LookupFromProfiles(profiles), nil
}

func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxFeedLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", MaxFeedLimit)
	}
	return n, nil
}

// applyOverrides layers query parameters over base. Only the overrides are
// validated; stored preferences are tolerated as Resolve tolerates them.
// base is not modified.
func applyOverrides(base *feed.Config, q url.Values) (*feed.Config, error) {
	var o feed.Config
	if v := q.Get("following_weight"); v != "" {
		o.FollowingWeight = feed.FollowingWeight(strings.ToLower(v))
	}
	if v := q.Get("window_days"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("window_days must be a number: %w", feed.ErrInvalidTimeWindow)
		}
		o.TimeWindowDays = &d
	}
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("threshold must be a number: %w", feed.ErrInvalidThreshold)
		}
		o.SemanticSimilarityThreshold = &t
	}
	if v := q.Get("boost_conversations"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("boost_conversations must be true or false")
		}
		o.BoostActiveConversations = &b
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var cfg feed.Config
	if base != nil {
		cfg = *base
	}
	if o.FollowingWeight != "" {
		cfg.FollowingWeight = o.FollowingWeight
	}
	if o.TimeWindowDays != nil {
		cfg.TimeWindowDays = o.TimeWindowDays
	}
	if o.SemanticSimilarityThreshold != nil {
		cfg.SemanticSimilarityThreshold = o.SemanticSimilarityThreshold
	}
	if o.BoostActiveConversations != nil {
		cfg.BoostActiveConversations = o.BoostActiveConversations
	}
	if q.Has("muted") {
		muted, err := validate.Topics(splitList(q.Get("muted")))
		if err != nil {
			return nil, fmt.Errorf("muted: %w", err)
		}
		cfg.MutedTopics = muted
	}
	if q.Has("liked") {
		liked, err := validate.Topics(splitList(q.Get("liked")))
		if err != nil {
			return nil, fmt.Errorf("liked: %w", err)
		}
		cfg.LikedTopics = liked
	}
	return &cfg, nil
}

// validateConfigBody checks a PUT body and normalizes its topic lists.
func validateConfigBody(cfg *feed.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	liked, err := validate.Topics(cfg.LikedTopics)
	if err != nil {
		return fmt.Errorf("liked_topics: %w", err)
	}
	muted, err := validate.Topics(cfg.MutedTopics)
	if err != nil {
		return fmt.Errorf("muted_topics: %w", err)
	}
	cfg.LikedTopics, cfg.MutedTopics = liked, muted
	return nil
}

// splitList parses a comma-separated query value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newFeedConfigResponse(cfg *feed.Config) FeedConfigResponse {
	if cfg == nil {
		cfg = &feed.Config{}
	}
	r := cfg.Resolve()
	return FeedConfigResponse{
		Stored: cfg,
		Effective: EffectiveConfig{
			FollowingWeight:             r.FollowingWeight,
			BoostActiveConversations:    r.BoostActiveConversations,
			LikedTopics:                 nonNil(r.LikedTopics),
			MutedTopics:                 nonNil(r.MutedTopics),
			TimeWindowDays:              r.TimeWindowDays,
			SemanticSimilarityThreshold: r.SemanticSimilarityThreshold,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
