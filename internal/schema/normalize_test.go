package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"First Name", "first name"},
		{"  First_Name  ", "first name"},
		{"LAST-NAME", "last name"},
		{"date__of--service", "date of service"},
		{"mrn", "mrn"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestCleanDecorations(t *testing.T) {
	assert.Equal(t, "MRN", CleanDecorations("MRN (string)"))
	assert.Equal(t, "First Name", CleanDecorations("First Name (FN) "))
	assert.Equal(t, "Points", CleanDecorations("Points"))
	assert.Equal(t, "a b", CleanDecorations("a (x) b (y)"))
}

func TestSquash(t *testing.T) {
	assert.Equal(t, "firstname", Squash("First_Name"))
	assert.Equal(t, "firstname", Squash("first name"))
	assert.Equal(t, "mrn", Squash("M.R.N"))
	assert.Equal(t, "dateofservice", Squash("Date-of Service"))
}
