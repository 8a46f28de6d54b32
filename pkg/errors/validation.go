package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// MaxIdeaLength bounds the free-text idea forwarded to the generation service.
const MaxIdeaLength = 4000

// MaxNodeIDLength bounds node identifiers in architecture records.
const MaxNodeIDLength = 128

// ValidateIdea validates a product idea before it is sent for generation.
//
// The validation rules:
//   - No empty or whitespace-only ideas
//   - Maximum length of MaxIdeaLength bytes
//   - No control characters other than newline, carriage return and tab
func ValidateIdea(idea string) error {
	if strings.TrimSpace(idea) == "" {
		return New(ErrCodeInvalidInput, "idea cannot be empty")
	}

	if len(idea) > MaxIdeaLength {
		return New(ErrCodeInvalidInput, "idea too long (max %d characters)", MaxIdeaLength)
	}

	for _, r := range idea {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "idea contains invalid control characters")
		}
	}

	return nil
}

// ValidateNodeID validates a single node identifier.
// Identifiers are opaque to the layout but must be printable and bounded so
// they can be used in DOT output and cache keys.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidArchitecture, "node id cannot be empty")
	}

	if len(id) > MaxNodeIDLength {
		return New(ErrCodeInvalidArchitecture, "node id too long (max %d characters)", MaxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidArchitecture, "node id %q contains control characters", id)
		}
	}

	return nil
}

// ValidateURL accepts absolute http and https URLs with a host, as used for
// the generation service base URL.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "malformed URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL %q must use http or https", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", rawURL)
	}
	return nil
}
