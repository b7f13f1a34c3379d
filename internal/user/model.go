// Package user provides viewer and author profiles, persisted For You feed
// preferences, and repositories for both.
package user

import (
	"errors"
	"slices"
)

// Common errors for user operations.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrMissingHandle    = errors.New("user handle is required")
	ErrDuplicateHandle  = errors.New("user handle already exists")
	ErrInvalidFollowing = errors.New("user cannot follow themselves")
)

// User is a viewer of the feed and, when they post, an author.
type User struct {
	ID          string   `json:"id"`
	Handle      string   `json:"handle"`
	DisplayName string   `json:"display_name,omitempty"`
	Following   []string `json:"following,omitempty"` // IDs of followed authors
	Interests   []string `json:"interests,omitempty"`

	// ProfileEmbedding is the precomputed interest vector. Nil means absent.
	ProfileEmbedding []float64 `json:"profile_embedding,omitempty"`

	// FeedPreferences is the stored For You configuration. Nil means defaults.
	FeedPreferences *FeedPreferences `json:"feed_preferences,omitempty"`
}

// FeedPreferences is the persisted form of a viewer's For You configuration.
// Pointer fields are optional; the feed engine resolves defaults once per request.
type FeedPreferences struct {
	FollowingWeight             string   `json:"following_weight,omitempty"`
	BoostActiveConversations    *bool    `json:"boost_active_conversations,omitempty"`
	LikedTopics                 []string `json:"liked_topics,omitempty"`
	MutedTopics                 []string `json:"muted_topics,omitempty"`
	TimeWindowDays              *float64 `json:"time_window_days,omitempty"`
	SemanticSimilarityThreshold *float64 `json:"semantic_similarity_threshold,omitempty"`
}

// AuthorProfile is the public projection of a user shown alongside chirps.
type AuthorProfile struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name,omitempty"`
}

// AuthorLookup resolves an author ID to a profile. The boolean is false when
// the author is unknown.
type AuthorLookup func(authorID string) (*AuthorProfile, bool)

// Validate checks the fields a writer is responsible for.
func (u *User) Validate() error {
	if u.Handle == "" {
		return ErrMissingHandle
	}
	if u.ID != "" && slices.Contains(u.Following, u.ID) {
		return ErrInvalidFollowing
	}
	return nil
}

// Follows reports whether u follows the given author.
func (u *User) Follows(authorID string) bool {
	return slices.Contains(u.Following, authorID)
}

// Profile returns the public projection of u.
func (u *User) Profile() *AuthorProfile {
	return &AuthorProfile{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
	}
}

// LookupFromProfiles builds an AuthorLookup over a fixed set of profiles.
func LookupFromProfiles(profiles map[string]*AuthorProfile) AuthorLookup {
	return func(authorID string) (*AuthorProfile, bool) {
		p, ok := profiles[authorID]
		return p, ok && p != nil
	}
}
