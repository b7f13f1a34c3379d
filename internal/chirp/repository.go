package chirp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the chirp data operations used by the feed service.
type Repository interface {
	// Create inserts a new chirp. A UUID is generated when ID is empty and
	// CreatedAt defaults to now when zero.
	Create(ctx context.Context, c *Chirp) error

	// GetByID retrieves a chirp by ID.
	GetByID(ctx context.Context, id string) (*Chirp, error)

	// ListRecent returns up to limit chirps ordered by created_at DESC, id ASC.
	// This is the candidate pool handed to the feed engine.
	ListRecent(ctx context.Context, limit int) ([]*Chirp, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	chirps map[string]*Chirp
}

// NewInMemoryRepository creates a new in-memory chirp repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		chirps: make(map[string]*Chirp),
	}
}

// Create inserts a new chirp.
func (r *InMemoryRepository) Create(ctx context.Context, c *Chirp) error {
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	stored := *c
	r.chirps[c.ID] = &stored
	return nil
}

// GetByID retrieves a chirp by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Chirp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.chirps[id]
	if !ok {
		return nil, ErrChirpNotFound
	}
	// Return a copy to avoid external modification
	result := *c
	return &result, nil
}

// ListRecent returns up to limit chirps, newest first.
func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*Chirp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Chirp, 0, len(r.chirps))
	for _, c := range r.chirps {
		cp := *c
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
