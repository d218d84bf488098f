package schema

import (
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for header normalization.
var (
	separatorRe     = regexp.MustCompile(`[_\-\s]+`)
	separatorDotRe  = regexp.MustCompile(`[_\-\s.]+`)
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	anchorRe        = regexp.MustCompile(`[.*^$]+`)
)

// Normalize lowercases a header and collapses runs of whitespace,
// underscores and hyphens into single spaces. Empty input stays empty.
func Normalize(header string) string {
	if header == "" {
		return ""
	}
	return strings.TrimSpace(separatorRe.ReplaceAllString(strings.ToLower(header), " "))
}

// CleanDecorations strips parenthetical notes from a header, so that
// "MRN (string)" compares as "MRN".
func CleanDecorations(header string) string {
	return strings.TrimSpace(parentheticalRe.ReplaceAllString(header, ""))
}

// Squash removes every separator (including dots) and lowercases, for the
// separator-free comparison pass: "First_Name" and "firstname" squash equal.
func Squash(s string) string {
	return separatorDotRe.ReplaceAllString(strings.ToLower(s), "")
}

// stripPatternMeta removes anchors and wildcard runs from a pattern so the
// remaining literal can be compared against a header directly.
func stripPatternMeta(pattern string) string {
	return strings.TrimSpace(anchorRe.ReplaceAllString(pattern, ""))
}
