// Package phone normalizes and validates mainland mobile numbers. It is
// shared by the server handlers and the API client so the same rules run on
// both sides of the wire.
package phone

import (
	"regexp"
	"strings"
)

var validRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

// Normalize strips every non-digit character and a leading "86" country
// code, returning the bare 11-digit form (or whatever digits remain).
func Normalize(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "86") && len(digits) > 11 {
		digits = digits[2:]
	}
	return digits
}

// IsValid reports whether s is a normalized mainland mobile number
// (1[3-9] followed by nine digits).
func IsValid(s string) bool {
	return validRe.MatchString(s)
}
