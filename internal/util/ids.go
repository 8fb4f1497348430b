package util

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// canonicalUUID accepts RFC 4122 versions 1-5 with the standard variant.
	canonicalUUID = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	hexOnly       = regexp.MustCompile(`(?i)^[0-9a-f]{32}$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizeUUID returns the hyphenated form of id. Canonical ids are returned
// unchanged, 32 hex digits are split 8-4-4-4-12 and anything else, including
// padded input, passes through untouched so that callers can decide how to
// reject it. Callers trim user input first.
func NormalizeUUID(id string) string {
	if canonicalUUID.MatchString(id) {
		return id
	}
	if hexOnly.MatchString(id) {
		if parsed, err := uuid.Parse(id); err == nil {
			return parsed.String()
		}
	}
	return id
}

// IsUUID reports whether id is a canonical hyphenated UUID.
func IsUUID(id string) bool {
	return canonicalUUID.MatchString(id)
}

// IsEmail performs the loose local@domain.tld shape check used at login and sign-up.
func IsEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NewID generates a random version 4 identifier.
func NewID() string {
	return uuid.NewString()
}

// EmailLocalPart returns the part of an address before the first '@'.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
