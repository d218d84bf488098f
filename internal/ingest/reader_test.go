package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadRowsCSV(t *testing.T) {
	input := "MRN,First Name,Notes\nA1,John,\"call, back\"\nA2,Jane,\n"

	headers, rows, err := ReadRows("export.csv", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"MRN", "First Name", "Notes"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"MRN": "A1", "First Name": "John", "Notes": "call, back"}, rows[0])
	assert.Equal(t, Row{"MRN": "A2", "First Name": "Jane", "Notes": ""}, rows[1])
}

func TestReadRowsCSVStripsBOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("MRN,First\nA1,John\n")...)

	headers, rows, err := ReadRows("export.csv", bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"MRN", "First"}, headers)
	require.Len(t, rows, 1)
}

func TestReadRowsCSVLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid as UTF-8.
	input := []byte("MRN,Last\nA1,Andr\xe9\n")

	_, rows, err := ReadRows("export.csv", bytes.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "André", rows[0]["Last"])
}

func TestReadRowsCSVRaggedRows(t *testing.T) {
	input := "MRN,First,Last\nA1,John\nA2,Jane,Doe,extra\n"

	headers, rows, err := ReadRows("export.csv", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Short rows pad with empty strings, long rows drop the overflow.
	assert.Equal(t, "", rows[0]["Last"])
	assert.Equal(t, "Doe", rows[1]["Last"])
	assert.Len(t, headers, 3)
}

func TestReadRowsCSVEmptyFile(t *testing.T) {
	_, _, err := ReadRows("export.csv", strings.NewReader(""))
	var formatErr *FileFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestReadRowsCSVBlankHeaderRow(t *testing.T) {
	_, _, err := ReadRows("export.csv", strings.NewReader(" , ,\nA1,John,x\n"))
	var formatErr *FileFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestReadRowsUnsupportedExtension(t *testing.T) {
	_, _, err := ReadRows("export.pdf", strings.NewReader("x"))
	var formatErr *FileFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Contains(t, formatErr.Error(), "export.pdf")
}

func TestReadHeadersOnly(t *testing.T) {
	headers, err := ReadHeaders("export.csv", strings.NewReader("MRN,First\nA1,John\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MRN", "First"}, headers)
}

func TestReadRowsSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"MRN", "First", "Points"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"A1", "John", 42}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"A2", "Jane", ""}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	headers, rows, err := ReadRows("export.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"MRN", "First", "Points"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0]["MRN"])
	assert.Equal(t, "John", rows[0]["First"])
	assert.Equal(t, "42", rows[0]["Points"])
}
