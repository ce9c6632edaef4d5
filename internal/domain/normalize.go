package domain

import "strings"

// NormalizeEmail prepares an email address for storage and lookup: trims
// surrounding whitespace and lowercases it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
