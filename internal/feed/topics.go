package feed

import (
	"strings"

	"github.com/onnwee/chirpfeed/internal/chirp"
)

// MatchesTopics reports whether the chirp's legacy topic or any of its
// semantic topics matches any tag.
//
// Matching is loose on purpose: two topics match when either contains the
// other, case-insensitively, so "dev" matches "devops".
func MatchesTopics(c *chirp.Chirp, tags []string) bool {
	if c == nil || len(tags) == 0 {
		return false
	}
	for _, tag := range tags {
		if topicMatches(c.Topic, tag) {
			return true
		}
		for _, topic := range c.SemanticTopics {
			if topicMatches(topic, tag) {
				return true
			}
		}
	}
	return false
}

// countInterestMatches returns how many semantic topics match at least one interest.
func countInterestMatches(topics, interests []string) int {
	n := 0
	for _, topic := range topics {
		for _, interest := range interests {
			if topicMatches(topic, interest) {
				n++
				break
			}
		}
	}
	return n
}

// topicMatches is bidirectional case-insensitive containment. Empty strings
// never match.
func topicMatches(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
