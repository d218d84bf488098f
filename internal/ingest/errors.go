package ingest

import (
	"fmt"
	"strings"
)

// FileFormatError means the source file could not be read at all: unknown
// extension, undecodable bytes or an empty header row. Nothing has been
// persisted when it is returned.
type FileFormatError struct {
	Name   string
	Reason string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("could not read file %q: %s", e.Name, e.Reason)
}

// FieldColumn is one invalid field -> column pair from a submitted map.
type FieldColumn struct {
	Field  string `json:"field"`
	Column string `json:"column"`
}

// MappingValidationError means a submitted column map references headers
// that are not in the file. It is raised before any row is processed.
type MappingValidationError struct {
	Invalid   []FieldColumn
	Available []string
}

func (e *MappingValidationError) Error() string {
	pairs := make([]string, len(e.Invalid))
	for i, fc := range e.Invalid {
		pairs[i] = fc.Field + " -> " + fc.Column
	}
	return fmt.Sprintf("mapped columns do not exist in the file: %s (available: %s)",
		strings.Join(pairs, ", "), strings.Join(e.Available, ", "))
}

// RowCreationError means inserting a brand-new record failed. It aborts the
// whole ingestion pass; Row is the 1-based index of the offending row.
type RowCreationError struct {
	Row int
	Err error
}

func (e *RowCreationError) Error() string {
	return fmt.Sprintf("error creating record for row %d: %v", e.Row, e.Err)
}

func (e *RowCreationError) Unwrap() error { return e.Err }
