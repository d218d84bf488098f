package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Urology-AI/data-manager/internal/entity"
)

func TestApplyRecordPatchCoercesCanonicalFields(t *testing.T) {
	rec := &entity.Record{}

	err := applyRecordPatch(rec, map[string]any{
		"first_name":      "John",
		"points":          7.0,
		"pca_confirmed":   true,
		"date_of_service": "3/10/2025",
	})
	require.NoError(t, err)

	require.NotNil(t, rec.FirstName)
	assert.Equal(t, "John", *rec.FirstName)
	require.NotNil(t, rec.Points)
	assert.Equal(t, 7.0, *rec.Points)
	require.NotNil(t, rec.PCaConfirmed)
	assert.True(t, *rec.PCaConfirmed)
	require.NotNil(t, rec.DateOfService)
	assert.Equal(t, time.March, rec.DateOfService.Month())
	assert.Equal(t, 10, rec.DateOfService.Day())
	assert.Equal(t, 2025, rec.DateOfService.Year())
}

func TestApplyRecordPatchBlankStringClearsField(t *testing.T) {
	name := "John"
	rec := &entity.Record{FirstName: &name}

	require.NoError(t, applyRecordPatch(rec, map[string]any{"first_name": ""}))
	assert.Nil(t, rec.FirstName)
}

func TestApplyRecordPatchMergesExtensionFields(t *testing.T) {
	rec := &entity.Record{ExtensionFields: datatypes.JSONMap{"a": "1", "b": "2"}}

	err := applyRecordPatch(rec, map[string]any{
		"extension_fields": map[string]any{
			"a": nil,
			"b": "changed",
			"c": "added",
		},
	})
	require.NoError(t, err)

	_, hasA := rec.ExtensionFields["a"]
	assert.False(t, hasA)
	assert.Equal(t, "changed", rec.ExtensionFields["b"])
	assert.Equal(t, "added", rec.ExtensionFields["c"])
}

func TestApplyRecordPatchRejectsUnknownField(t *testing.T) {
	rec := &entity.Record{}
	assert.Error(t, applyRecordPatch(rec, map[string]any{"not_a_field": "x"}))
	assert.Error(t, applyRecordPatch(rec, map[string]any{"extension_fields": "not an object"}))
}

func TestPatchValueUnparsableBecomesNil(t *testing.T) {
	assert.Nil(t, patchValue("not a number", "number"))
	assert.Nil(t, patchValue("not a date", "datetime"))
	assert.Equal(t, "kept", patchValue("kept", "string"))
}
