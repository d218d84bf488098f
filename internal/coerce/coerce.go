// Package coerce converts raw cell values into the semantic types declared
// by the canonical field registry. Conversion never fails: a value that
// cannot be parsed degrades to nil and processing continues.
package coerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/Urology-AI/data-manager/internal/schema"
)

// Explicit date layouts tried in order before the permissive fallback.
// Month-first layouts come first; the source files are US-shaped.
var dateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2-1-2006",
	"2006-01-02",
	"2006/01/02",
	"1/2/06",
	"2/1/06",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
}

// Permissive fallback layouts for anything the explicit ladder missed.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2 2006",
	"2006.01.02",
	"01/02/2006 3:04 PM",
}

// Affirmative strings for boolean coercion; anything else is false.
var affirmative = map[string]bool{
	"true":      true,
	"yes":       true,
	"1":         true,
	"y":         true,
	"confirmed": true,
}

// Value converts a raw cell into the given semantic type. The result is
// nil, string, float64, bool or time.Time. Empty and unparsable inputs are
// nil, never an error.
func Value(raw string, t schema.FieldType) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	switch t {
	case schema.TypeNumber:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return f
	case schema.TypeBoolean:
		return affirmative[strings.ToLower(trimmed)]
	case schema.TypeDateTime:
		if ts, ok := ParseDate(trimmed); ok {
			return ts
		}
		return nil
	default:
		return trimmed
	}
}

// ParseDate parses a date string against the explicit layout ladder, then
// the permissive fallback list.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	for _, layout := range fallbackLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
