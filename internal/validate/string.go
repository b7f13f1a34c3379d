// Package validate provides input validation for viewer-supplied strings such
// as the topic lists in feed preferences.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
	ErrTooManyTopics     = errors.New("too many topics")
)

// Topic limits.
const (
	MaxTopicLength = 64
	MaxTopics      = 50
)

// topicPattern admits letters and digits in any script plus a few separators
// that show up in hashtags and compound topics.
var topicPattern = regexp.MustCompile(`^[\p{L}\p{N} _\-#.&+']+$`)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength      int            // Minimum length (0 = no minimum)
	MaxLength      int            // Maximum length (0 = no maximum)
	AllowedPattern *regexp.Regexp // Optional regex pattern for allowed characters
	AllowEmpty     bool           // Whether empty strings are allowed
	TrimSpace      bool           // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}
	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	return s, nil
}

// Topic validates a single liked or muted topic:
// - 1-64 characters after trimming
// - letters, numbers, spaces and _ - # . & + ' only
func Topic(topic string) (string, error) {
	return String(topic, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxTopicLength,
		AllowedPattern: topicPattern,
		TrimSpace:      true,
	})
}

// Topics validates a topic list, trimming each entry and dropping blanks and
// case-insensitive duplicates while keeping the first spelling. Returns nil
// for an empty result.
func Topics(topics []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{}, len(topics))
	for _, raw := range topics {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t, err := Topic(raw)
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", raw, err)
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	if len(out) > MaxTopics {
		return nil, fmt.Errorf("%w: got %d, maximum is %d", ErrTooManyTopics, len(out), MaxTopics)
	}
	return out, nil
}
