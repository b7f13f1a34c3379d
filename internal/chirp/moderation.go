package chirp

import (
	"errors"
	"slices"
)

// FactCheckStatus is the moderation verdict attached to a chirp.
type FactCheckStatus string

// Fact-check statuses. They never hide a chirp on their own; the feed scorer
// penalizes them instead.
const (
	// FactCheckClean marks content that passed moderation.
	FactCheckClean FactCheckStatus = "clean"

	// FactCheckNeedsReview marks content awaiting a human decision.
	FactCheckNeedsReview FactCheckStatus = "needs_review"

	// FactCheckBlocked marks content the fact-checker rejected.
	FactCheckBlocked FactCheckStatus = "blocked"
)

// AllowedFactCheckStatuses is the exhaustive list of valid statuses.
// The empty status is accepted and treated as clean.
var AllowedFactCheckStatuses = []FactCheckStatus{
	FactCheckClean,
	FactCheckNeedsReview,
	FactCheckBlocked,
}

// ErrInvalidFactCheckStatus is returned for statuses outside AllowedFactCheckStatuses.
var ErrInvalidFactCheckStatus = errors.New("invalid fact-check status")

// ValidateFactCheckStatus checks that status is recognized.
func ValidateFactCheckStatus(status FactCheckStatus) error {
	if status == "" || slices.Contains(AllowedFactCheckStatuses, status) {
		return nil
	}
	return ErrInvalidFactCheckStatus
}

// IsBlocked returns true if the fact-checker blocked the chirp.
func (c *Chirp) IsBlocked() bool {
	return c.FactCheckStatus == FactCheckBlocked
}

// NeedsReview returns true if the chirp is waiting on moderation review.
func (c *Chirp) NeedsReview() bool {
	return c.FactCheckStatus == FactCheckNeedsReview
}
