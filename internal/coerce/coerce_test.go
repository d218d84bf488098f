package coerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Urology-AI/data-manager/internal/schema"
)

func TestValueString(t *testing.T) {
	assert.Equal(t, "hello", Value("  hello  ", schema.TypeString))
	assert.Nil(t, Value("", schema.TypeString))
	assert.Nil(t, Value("   ", schema.TypeString))
}

func TestValueNumber(t *testing.T) {
	assert.Equal(t, 42.0, Value("42", schema.TypeNumber))
	assert.Equal(t, 3.14, Value("3.14", schema.TypeNumber))
	assert.Equal(t, -7.5, Value(" -7.5 ", schema.TypeNumber))

	// Unparsable values degrade to nil, never an error.
	assert.Nil(t, Value("N/A", schema.TypeNumber))
	assert.Nil(t, Value("forty-two", schema.TypeNumber))
	assert.Nil(t, Value("", schema.TypeNumber))
}

func TestValueBoolean(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "Yes", "y", "1", "Confirmed"} {
		assert.Equal(t, true, Value(s, schema.TypeBoolean), "Value(%q)", s)
	}
	for _, s := range []string{"false", "no", "0", "n", "maybe", "2"} {
		assert.Equal(t, false, Value(s, schema.TypeBoolean), "Value(%q)", s)
	}
	assert.Nil(t, Value("", schema.TypeBoolean))
}

func TestValueDateTime(t *testing.T) {
	got := Value("3/10/2025", schema.TypeDateTime)
	require.IsType(t, time.Time{}, got)
	ts := got.(time.Time)
	// Month-first wins for ambiguous dates.
	assert.Equal(t, time.March, ts.Month())
	assert.Equal(t, 10, ts.Day())
	assert.Equal(t, 2025, ts.Year())

	assert.Nil(t, Value("not a date", schema.TypeDateTime))
	assert.Nil(t, Value("", schema.TypeDateTime))
}

func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		in    string
		year  int
		month time.Month
		day   int
	}{
		{"1/2/2006", 2006, time.January, 2},
		{"12/31/1999", 1999, time.December, 31},
		{"31/12/1999", 1999, time.December, 31}, // day-first fallback
		{"2025-03-10", 2025, time.March, 10},
		{"2025/03/10", 2025, time.March, 10},
		{"3/10/25", 2025, time.March, 10},
		{"2025-03-10 14:30:00", 2025, time.March, 10},
		{"Jan 2, 2006", 2006, time.January, 2},
		{"2006-01-02T15:04:05Z", 2006, time.January, 2},
	}
	for _, tc := range cases {
		ts, ok := ParseDate(tc.in)
		require.True(t, ok, "ParseDate(%q)", tc.in)
		assert.Equal(t, tc.year, ts.Year(), "ParseDate(%q)", tc.in)
		assert.Equal(t, tc.month, ts.Month(), "ParseDate(%q)", tc.in)
		assert.Equal(t, tc.day, ts.Day(), "ParseDate(%q)", tc.in)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "  ", "yesterday", "13/32/2020"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, "ParseDate(%q)", s)
	}
}
