// Package validation checks listing parameters before any request is made.
// Every Validate* function returns a *errors.ConfigError on failure.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
)

const (
	// MinLimit and MaxLimit bound the number of posts a single listing call may request.
	MinLimit = 1
	MaxLimit = 100

	maxUserAgentLength = 256
	maxQueryLength     = 512
)

// Regular expressions for validating Reddit names
var (
	// subredditRegex matches valid subreddit names (2-21 chars, alphanumeric + underscore)
	subredditRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{2,21}$`)

	// usernameRegex matches valid Reddit usernames (3-20 chars, alphanumeric + underscore + hyphen)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
)

// Sort orders accepted by the listing endpoints. Reddit ignores an order an
// endpoint does not support, so one set covers both search and user listings.
var sorts = map[string]bool{
	"relevance":     true,
	"hot":           true,
	"top":           true,
	"new":           true,
	"comments":      true,
	"controversial": true,
	"rising":        true,
}

// Time windows accepted by the "t" parameter.
var timeWindows = map[string]bool{
	"hour":  true,
	"day":   true,
	"week":  true,
	"month": true,
	"year":  true,
	"all":   true,
}

// Loader modes.
const (
	ModeSubreddit = "subreddit"
	ModeUsername  = "username"
)

// IsValidSubreddit checks if a string is a valid subreddit name
func IsValidSubreddit(s string) bool {
	return subredditRegex.MatchString(s)
}

// IsValidUsername checks if a string is a valid Reddit username
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidSort checks if a string is an accepted sort order
func IsValidSort(s string) bool {
	return sorts[s]
}

// IsValidTime checks if a string is an accepted time window
func IsValidTime(s string) bool {
	return timeWindows[s]
}

// ValidateSubreddit validates a subreddit name without its "r/" prefix.
func ValidateSubreddit(name string) error {
	if name == "" {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: "subreddit name cannot be empty"}
	}
	if !IsValidSubreddit(name) {
		return &pkgerrs.ConfigError{Field: "subreddit", Message: fmt.Sprintf("invalid subreddit name %q", name)}
	}
	return nil
}

// ValidateUsername validates a username without its "u/" prefix.
func ValidateUsername(name string) error {
	if name == "" {
		return &pkgerrs.ConfigError{Field: "username", Message: "username cannot be empty"}
	}
	if !IsValidUsername(name) {
		return &pkgerrs.ConfigError{Field: "username", Message: fmt.Sprintf("invalid username %q", name)}
	}
	return nil
}

// ValidateQuery validates a search query string.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return &pkgerrs.ConfigError{Field: "query", Message: "query cannot be empty"}
	}
	if len(q) > maxQueryLength {
		return &pkgerrs.ConfigError{Field: "query", Message: fmt.Sprintf("query cannot exceed %d characters", maxQueryLength)}
	}
	return nil
}

// ValidateListing validates the shared sort/limit/time parameters.
func ValidateListing(sort string, limit int, t string) error {
	if !IsValidSort(sort) {
		return &pkgerrs.ConfigError{Field: "sort", Message: fmt.Sprintf("unsupported sort %q", sort)}
	}
	if limit < MinLimit || limit > MaxLimit {
		return &pkgerrs.ConfigError{Field: "limit", Message: fmt.Sprintf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, limit)}
	}
	if !IsValidTime(t) {
		return &pkgerrs.ConfigError{Field: "time", Message: fmt.Sprintf("unsupported time window %q", t)}
	}
	return nil
}

// ValidateMode checks a loader mode.
func ValidateMode(mode string) error {
	if mode != ModeSubreddit && mode != ModeUsername {
		return &pkgerrs.ConfigError{
			Field:   "mode",
			Message: fmt.Sprintf("invalid mode %q: please choose %q or %q", mode, ModeSubreddit, ModeUsername),
		}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot be empty"}
	}
	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain newline characters"}
	}
	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent too long (max %d characters)", maxUserAgentLength)}
	}
	return nil
}
