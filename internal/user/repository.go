package user

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository defines the user data operations used by the feed service.
type Repository interface {
	// Create inserts a new user. A UUID is generated when ID is empty.
	Create(ctx context.Context, u *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetProfiles returns profiles for the given author IDs. Unknown IDs are
	// omitted from the result rather than reported as errors.
	GetProfiles(ctx context.Context, ids []string) (map[string]*AuthorProfile, error)

	// UpdateFeedPreferences replaces the stored For You configuration.
	// A nil prefs resets the user to defaults.
	UpdateFeedPreferences(ctx context.Context, id string, prefs *FeedPreferences) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]*User
	handles map[string]string // handle -> ID
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:   make(map[string]*User),
		handles: make(map[string]string),
	}
}

// Create inserts a new user.
func (r *InMemoryRepository) Create(ctx context.Context, u *User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[u.Handle]; exists {
		return ErrDuplicateHandle
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}

	r.users[u.ID] = cloneUser(u)
	r.handles[u.Handle] = u.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetProfiles returns profiles for the known IDs among ids.
func (r *InMemoryRepository) GetProfiles(ctx context.Context, ids []string) (map[string]*AuthorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make(map[string]*AuthorProfile, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			profiles[id] = u.Profile()
		}
	}
	return profiles, nil
}

// UpdateFeedPreferences replaces the stored For You configuration.
func (r *InMemoryRepository) UpdateFeedPreferences(ctx context.Context, id string, prefs *FeedPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.FeedPreferences = clonePreferences(prefs)
	return nil
}

// cloneUser deep-copies the slices so callers cannot mutate stored state.
func cloneUser(u *User) *User {
	cp := *u
	cp.Following = append([]string(nil), u.Following...)
	cp.Interests = append([]string(nil), u.Interests...)
	cp.ProfileEmbedding = append([]float64(nil), u.ProfileEmbedding...)
	cp.FeedPreferences = clonePreferences(u.FeedPreferences)
	return &cp
}

func clonePreferences(p *FeedPreferences) *FeedPreferences {
	if p == nil {
		return nil
	}
	cp := *p
	cp.LikedTopics = append([]string(nil), p.LikedTopics...)
	cp.MutedTopics = append([]string(nil), p.MutedTopics...)
	if p.BoostActiveConversations != nil {
		v := *p.BoostActiveConversations
		cp.BoostActiveConversations = &v
	}
	if p.TimeWindowDays != nil {
		v := *p.TimeWindowDays
		cp.TimeWindowDays = &v
	}
	if p.SemanticSimilarityThreshold != nil {
		v := *p.SemanticSimilarityThreshold
		cp.SemanticSimilarityThreshold = &v
	}
	return &cp
}
