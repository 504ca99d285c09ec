package utils

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)

// SanitizeString removes control characters. Newlines and tabs are kept.
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// CleanText sanitizes user text and trims surrounding whitespace
func CleanText(s string) string {
	return strings.TrimSpace(SanitizeString(s))
}
