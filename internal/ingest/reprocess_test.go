package ingest

import (
	"context"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Urology-AI/data-manager/internal/entity"
)

func reprocessFixture(t *testing.T) (*Engine, *memoryStore, *entity.Dataset, []*entity.Record) {
	t.Helper()
	engine, store, ds := newTestEngine()
	ds.SetColumnMap(map[string]string{"mrn": "MRN", "first_name": "First", "last_name": "Last"})

	mrn1, first1 := "A1", "John"
	mrn2 := "A2"
	records := []*entity.Record{
		{ID: uuid.New(), DatasetID: ds.ID, RecordKey: "1", MRN: &mrn1, FirstName: &first1},
		{ID: uuid.New(), DatasetID: ds.ID, RecordKey: "2", MRN: &mrn2,
			ExtensionFields: datatypes.JSONMap{"Notes": "kept"}},
	}
	store.records = records
	return engine, store, ds, records
}

func TestCheckReportsUnmappedAndExtensionColumns(t *testing.T) {
	engine, _, ds, records := reprocessFixture(t)
	headers := []string{"MRN", "First", "Last", "Notes", "Zip"}
	rows := []Row{
		{"MRN": "A1", "First": "John", "Last": "Doe", "Notes": "n", "Zip": "10001"},
		{"MRN": "A2", "First": "Jane", "Last": "", "Notes": "", "Zip": ""},
	}

	report := engine.Check(ds, records, headers, rows)

	// Unmapped columns come back in file order.
	assert.Equal(t, []string{"Notes", "Zip"}, report.UnmappedColumns)
	assert.Equal(t, []string{"Notes"}, report.ExtensionColumns)
	assert.Equal(t, 2, report.TotalRowsInFile)
	assert.Equal(t, 2, report.TotalRecords)
}

func TestCheckReportsMissingData(t *testing.T) {
	engine, _, ds, records := reprocessFixture(t)
	headers := []string{"MRN", "First", "Last"}
	rows := []Row{
		{"MRN": "A1", "First": "John", "Last": "Doe"},
		{"MRN": "A2", "First": "Jane", "Last": ""},
	}

	report := engine.Check(ds, records, headers, rows)

	// Record 1 is missing last_name and the file has it; record 2 is
	// missing first_name. The blank last_name cell for record 2 is not a
	// gap the file can close, so it is not reported.
	require.Contains(t, report.MissingData, "last_name")
	lastName := report.MissingData["last_name"]
	assert.Equal(t, "Last", lastName.Column)
	assert.Equal(t, 1, lastName.MissingCount)
	require.Len(t, lastName.Samples, 1)
	assert.Equal(t, "1", lastName.Samples[0].RecordKey)
	assert.Equal(t, "A1", lastName.Samples[0].MRN)
	assert.Equal(t, "Doe", lastName.Samples[0].Value)

	require.Contains(t, report.MissingData, "first_name")
	assert.Equal(t, 1, report.MissingData["first_name"].MissingCount)

	require.Len(t, report.RowsWithMissingData, 2)
	assert.Equal(t, "1", report.RowsWithMissingData[0].RecordKey)
	assert.Equal(t, "Doe", report.RowsWithMissingData[0].MissingFields["last_name"].Value)
}

func TestCheckBoundsSamples(t *testing.T) {
	engine, store, ds := newTestEngine()
	ds.SetColumnMap(map[string]string{"mrn": "MRN", "last_name": "Last"})

	var records []*entity.Record
	var rows []Row
	for i := 1; i <= 30; i++ {
		mrn := "M" + strconv.Itoa(i)
		records = append(records, &entity.Record{
			ID: uuid.New(), DatasetID: ds.ID, RecordKey: strconv.Itoa(i), MRN: &mrn,
		})
		rows = append(rows, Row{"MRN": mrn, "Last": "Doe"})
	}
	store.records = records

	report := engine.Check(ds, records, []string{"MRN", "Last"}, rows)

	summary := report.MissingData["last_name"]
	require.NotNil(t, summary)
	assert.Equal(t, 30, summary.MissingCount)
	assert.Len(t, summary.Samples, 5)
	assert.Len(t, report.RowsWithMissingData, 20)
}

func TestBackfillFillsOnlyMissingFields(t *testing.T) {
	engine, store, ds, records := reprocessFixture(t)
	rows := []Row{
		{"MRN": "A1", "First": "Johnny", "Last": "Doe"},
		{"MRN": "A2", "First": "Jane", "Last": "Roe"},
	}

	result, err := engine.Backfill(context.Background(), ds, records, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RecordsUpdated)
	assert.Equal(t, 3, result.FieldsUpdated)
	// Record 1 already had a first name; only its last name was filled.
	assert.Equal(t, "John", records[0].FirstNameValue())
	assert.Equal(t, "Doe", records[0].LastNameValue())
	assert.Equal(t, "Jane", records[1].FirstNameValue())
	assert.Equal(t, "Roe", records[1].LastNameValue())
	assert.Equal(t, 2, store.updates)
}

func TestBackfillSkipsRowsWithoutRecords(t *testing.T) {
	engine, store, ds, records := reprocessFixture(t)
	rows := []Row{
		{"MRN": "A1", "First": "John", "Last": ""},
		{"MRN": "A2", "First": "", "Last": ""},
		{"MRN": "A3", "First": "New", "Last": "Person"},
	}

	result, err := engine.Backfill(context.Background(), ds, records, rows)
	require.NoError(t, err)

	// Row 3 has no persisted record; backfill never creates one.
	assert.Equal(t, 0, result.RecordsUpdated)
	assert.Equal(t, 0, result.FieldsUpdated)
	assert.Len(t, store.records, 2)
}

func TestPromoteUnmappedNeverOverwrites(t *testing.T) {
	engine, _, ds, records := reprocessFixture(t)
	headers := []string{"MRN", "First", "Last", "Notes", "Zip"}
	rows := []Row{
		{"MRN": "A1", "Notes": "first note", "Zip": "10001"},
		{"MRN": "A2", "Notes": "would clobber", "Zip": "94105"},
	}

	result, err := engine.PromoteUnmapped(context.Background(), ds, records, headers, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ColumnsAdded)
	assert.Equal(t, []string{"Notes", "Zip"}, result.UnmappedColumns)
	assert.Equal(t, 2, result.RecordsUpdated)

	assert.Equal(t, "first note", records[0].ExtensionFields["Notes"])
	assert.Equal(t, "10001", records[0].ExtensionFields["Zip"])
	// Record 2 already carried Notes; the existing value wins.
	assert.Equal(t, "kept", records[1].ExtensionFields["Notes"])
	assert.Equal(t, "94105", records[1].ExtensionFields["Zip"])
}

func TestPromoteUnmappedNoUnmappedColumns(t *testing.T) {
	engine, _, ds, records := reprocessFixture(t)
	headers := []string{"MRN", "First", "Last"}
	rows := []Row{{"MRN": "A1", "First": "John", "Last": "Doe"}}

	result, err := engine.PromoteUnmapped(context.Background(), ds, records, headers, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ColumnsAdded)
	assert.Equal(t, 0, result.RecordsUpdated)
}
