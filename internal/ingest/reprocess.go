package ingest

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Urology-AI/data-manager/internal/coerce"
	"github.com/Urology-AI/data-manager/internal/entity"
	"github.com/Urology-AI/data-manager/internal/schema"
)

// Bounds for the drift check, to keep the report readable on large files.
const (
	checkRowLimit  = 100
	sampleLimit    = 5
	rowReportLimit = 20
	sampleValueMax = 100
)

// MissingSample is one illustrative row for a field with missing data.
type MissingSample struct {
	RecordKey string `json:"record_key"`
	MRN       string `json:"mrn"`
	Value     string `json:"value"`
}

// FieldMissingSummary aggregates missing data for one mapped field.
type FieldMissingSummary struct {
	Field        string          `json:"field"`
	Column       string          `json:"column"`
	MissingCount int             `json:"missing_count"`
	Samples      []MissingSample `json:"sample_values"`
}

// MissingFieldDetail is the file-side value a record is missing.
type MissingFieldDetail struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// RowMissing lists the fields one record is missing relative to the file.
type RowMissing struct {
	RecordKey     string                        `json:"record_key"`
	MRN           string                        `json:"mrn"`
	FirstName     string                        `json:"first_name"`
	LastName      string                        `json:"last_name"`
	MissingFields map[string]MissingFieldDetail `json:"missing_fields"`
}

// CheckReport is the drift report between a source file and its records.
type CheckReport struct {
	UnmappedColumns     []string                        `json:"unmapped_columns"`
	ExtensionColumns    []string                        `json:"extension_columns"`
	MissingData         map[string]*FieldMissingSummary `json:"missing_data_summary"`
	TotalRowsInFile     int                             `json:"total_rows_in_file"`
	TotalRecords        int                             `json:"total_records"`
	RowsWithMissingData []RowMissing                    `json:"rows_with_missing_data"`
}

// Check re-reads a source file against a dataset's stored column map and
// reports drift: headers the map never claimed, extension keys the file
// still provides, and mapped values present in the file but absent from the
// persisted records. Only the first checkRowLimit rows are scanned.
func (e *Engine) Check(ds *entity.Dataset, records []*entity.Record, headers []string, rows []Row) *CheckReport {
	columnMap := ds.ColumnMapStrings()
	mapped := make(map[string]bool, len(columnMap))
	for _, col := range columnMap {
		mapped[col] = true
	}

	report := &CheckReport{
		UnmappedColumns:     []string{},
		ExtensionColumns:    []string{},
		MissingData:         make(map[string]*FieldMissingSummary),
		TotalRowsInFile:     len(rows),
		TotalRecords:        len(records),
		RowsWithMissingData: []RowMissing{},
	}

	for _, h := range headers {
		if !mapped[h] {
			report.UnmappedColumns = append(report.UnmappedColumns, h)
		}
	}

	extensionKeys := make(map[string]bool)
	for _, rec := range records {
		for k := range rec.ExtensionFields {
			extensionKeys[k] = true
		}
	}
	for _, h := range headers {
		if extensionKeys[h] {
			report.ExtensionColumns = append(report.ExtensionColumns, h)
		}
	}

	byKey := recordsByKey(records)

	limit := len(rows)
	if limit > checkRowLimit {
		limit = checkRowLimit
	}
	for idx := 0; idx < limit; idx++ {
		row := rows[idx]
		key := strconv.Itoa(idx + 1)
		rec, ok := byKey[key]
		if !ok {
			continue
		}

		rowMissing := make(map[string]MissingFieldDetail)
		for field, col := range columnMap {
			if !schema.IsCanonical(field) {
				continue
			}
			fileValue, ok := cleanScalar(row[col])
			if !ok {
				continue
			}
			current, _ := rec.Field(field)
			if !IsMissing(current) {
				continue
			}

			summary, ok := report.MissingData[field]
			if !ok {
				summary = &FieldMissingSummary{Field: field, Column: col, Samples: []MissingSample{}}
				report.MissingData[field] = summary
			}
			summary.MissingCount++
			if len(summary.Samples) < sampleLimit {
				summary.Samples = append(summary.Samples, MissingSample{
					RecordKey: key,
					MRN:       rec.MRNValue(),
					Value:     truncate(fileValue, sampleValueMax),
				})
			}
			rowMissing[field] = MissingFieldDetail{Column: col, Value: fileValue}
		}

		if len(rowMissing) > 0 && len(report.RowsWithMissingData) < rowReportLimit {
			report.RowsWithMissingData = append(report.RowsWithMissingData, RowMissing{
				RecordKey:     key,
				MRN:           rec.MRNValue(),
				FirstName:     rec.FirstNameValue(),
				LastName:      rec.LastNameValue(),
				MissingFields: rowMissing,
			})
		}
	}

	return report
}

// BackfillResult aggregates one backfill pass.
type BackfillResult struct {
	RecordsUpdated int `json:"records_updated"`
	FieldsUpdated  int `json:"fields_updated"`
}

// Backfill closes the gaps Check reports: for every row with a persisted
// record, each mapped field whose file value is present and whose stored
// value is missing gets filled. Populated fields are never touched, and a
// value that fails coercion is skipped, not an error.
func (e *Engine) Backfill(ctx context.Context, ds *entity.Dataset, records []*entity.Record, rows []Row) (BackfillResult, error) {
	lock := e.datasetLock(ds.ID)
	lock.Lock()
	defer lock.Unlock()

	var result BackfillResult
	columnMap := ds.ColumnMapStrings()
	byKey := recordsByKey(records)

	for idx, row := range rows {
		key := strconv.Itoa(idx + 1)
		rec, ok := byKey[key]
		if !ok {
			continue
		}

		changed := false
		for field, col := range columnMap {
			def, ok := schema.FieldByName(field)
			if !ok {
				continue
			}
			fileValue, ok := cleanScalar(row[col])
			if !ok {
				continue
			}
			current, _ := rec.Field(field)
			if !IsMissing(current) {
				continue
			}
			value := coerce.Value(fileValue, def.Type)
			if value == nil {
				continue
			}
			if rec.SetField(field, value) {
				changed = true
				result.FieldsUpdated++
			}
		}

		if changed {
			if err := e.store.Update(ctx, rec); err != nil {
				e.logger.Error("Failed to backfill record",
					zap.String("dataset_id", ds.ID.String()),
					zap.String("record_key", key),
					zap.Error(err))
				return result, err
			}
			result.RecordsUpdated++
		}
	}

	return result, nil
}

// PromoteResult aggregates one promotion pass.
type PromoteResult struct {
	ColumnsAdded    int      `json:"columns_added"`
	RecordsUpdated  int      `json:"records_updated"`
	UnmappedColumns []string `json:"columns"`
}

// PromoteUnmapped copies every currently-unmapped column into each matching
// record's extension map. The column map itself is untouched, and a header
// already present in a record's extension map is never overwritten.
func (e *Engine) PromoteUnmapped(ctx context.Context, ds *entity.Dataset, records []*entity.Record, headers []string, rows []Row) (PromoteResult, error) {
	lock := e.datasetLock(ds.ID)
	lock.Lock()
	defer lock.Unlock()

	columnMap := ds.ColumnMapStrings()
	mapped := make(map[string]bool, len(columnMap))
	for _, col := range columnMap {
		mapped[col] = true
	}

	var unmapped []string
	for _, h := range headers {
		if !mapped[h] {
			unmapped = append(unmapped, h)
		}
	}

	result := PromoteResult{UnmappedColumns: unmapped, ColumnsAdded: len(unmapped)}
	if len(unmapped) == 0 {
		result.ColumnsAdded = 0
		return result, nil
	}

	byKey := recordsByKey(records)
	for idx, row := range rows {
		key := strconv.Itoa(idx + 1)
		rec, ok := byKey[key]
		if !ok {
			continue
		}

		changed := false
		for _, col := range unmapped {
			value, ok := cleanScalar(row[col])
			if !ok {
				continue
			}
			if rec.ExtensionFields == nil {
				rec.ExtensionFields = datatypes.JSONMap{}
			}
			if _, exists := rec.ExtensionFields[col]; exists {
				continue
			}
			rec.ExtensionFields[col] = value
			changed = true
		}

		if changed {
			if err := e.store.Update(ctx, rec); err != nil {
				return result, err
			}
			result.RecordsUpdated++
		}
	}

	return result, nil
}

func recordsByKey(records []*entity.Record) map[string]*entity.Record {
	byKey := make(map[string]*entity.Record, len(records))
	for _, rec := range records {
		byKey[rec.RecordKey] = rec
	}
	return byKey
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
