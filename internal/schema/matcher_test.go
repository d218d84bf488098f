package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchScoreExactAnchored(t *testing.T) {
	field, _ := FieldByName("mrn")
	assert.Equal(t, 1.0, MatchScore("MRN", field.Patterns))
	assert.Equal(t, 1.0, MatchScore("mrn", field.Patterns))
}

func TestMatchScorePartial(t *testing.T) {
	field, _ := FieldByName("mrn")
	// "medical record" out of "medical record number".
	score := MatchScore("Medical Record Number", field.Patterns)
	assert.Greater(t, score, 0.5)
	assert.Less(t, score, 1.0)
}

func TestMatchScoreStrippedMetaEquality(t *testing.T) {
	// The regexp itself cannot match (the $ splits the literal), but the
	// pattern with meta characters removed equals the header.
	assert.Equal(t, 1.0, MatchScore("foobar", []string{`foo$bar`}))
}

func TestMatchScorePartialCappedAt09(t *testing.T) {
	score := MatchScore("abcdefghijk", []string{`abcdefghij`})
	assert.Equal(t, 0.9, score)
}

func TestMatchScoreSeparatorFreeOverride(t *testing.T) {
	// "firstname" never matches "^first name$" as a regexp, but with all
	// separators removed the two are identical.
	assert.Equal(t, 1.0, MatchScore("firstname", []string{`^first name$`}))
	assert.Equal(t, 1.0, MatchScore("First_Name", []string{`^first name$`}))
}

func TestMatchScoreMalformedPatternSkipped(t *testing.T) {
	assert.Equal(t, 0.0, MatchScore("anything", []string{`[`}))
	// A malformed pattern must not poison the rest of the list.
	assert.Equal(t, 1.0, MatchScore("race", []string{`[`, `^race$`}))
}

func TestMatchScoreEmptyHeader(t *testing.T) {
	assert.Equal(t, 0.0, MatchScore("", []string{`^mrn$`}))
	assert.Equal(t, 0.0, MatchScore("   ", []string{`^mrn$`}))
}
