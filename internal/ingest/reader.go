package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Row is one source row, keyed by source header.
type Row map[string]string

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadHeaders extracts just the header row of a source file. The format is
// chosen from the file name's extension: .csv is delimited text, .xlsx and
// .xls are spreadsheets (first worksheet, first row).
func ReadHeaders(name string, r io.Reader) ([]string, error) {
	headers, _, err := read(name, r, true)
	return headers, err
}

// ReadRows extracts the header row and every data row of a source file, in
// file order.
func ReadRows(name string, r io.Reader) ([]string, []Row, error) {
	return read(name, r, false)
}

func read(name string, r io.Reader, headersOnly bool) ([]string, []Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV(name, r, headersOnly)
	case ".xlsx", ".xls":
		return readSpreadsheet(name, r, headersOnly)
	default:
		return nil, nil, &FileFormatError{Name: name, Reason: "unsupported file type, expected .csv, .xlsx or .xls"}
	}
}

func readCSV(name string, r io.Reader, headersOnly bool) ([]string, []Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &FileFormatError{Name: name, Reason: err.Error()}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	// Primary encoding is UTF-8; anything that does not decode falls back
	// to Latin-1, which accepts every byte sequence.
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, nil, &FileFormatError{Name: name, Reason: "undecodable text encoding"}
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, &FileFormatError{Name: name, Reason: "file appears to be empty or invalid"}
	}
	if emptyHeaders(headers) {
		return nil, nil, &FileFormatError{Name: name, Reason: "header row is empty"}
	}
	if headersOnly {
		return headers, nil, nil
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &FileFormatError{Name: name, Reason: err.Error()}
		}
		rows = append(rows, rowFromCells(headers, record))
	}
	return headers, rows, nil
}

func readSpreadsheet(name string, r io.Reader, headersOnly bool) ([]string, []Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, &FileFormatError{Name: name, Reason: err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &FileFormatError{Name: name, Reason: "workbook has no worksheets"}
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &FileFormatError{Name: name, Reason: err.Error()}
	}
	if len(cells) == 0 || emptyHeaders(cells[0]) {
		return nil, nil, &FileFormatError{Name: name, Reason: "file appears to be empty or invalid"}
	}

	headers := cells[0]
	if headersOnly {
		return headers, nil, nil
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, rowFromCells(headers, record))
	}
	return headers, rows, nil
}

func rowFromCells(headers, cells []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if i < len(cells) {
			row[h] = cells[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

func emptyHeaders(headers []string) bool {
	for _, h := range headers {
		if strings.TrimSpace(h) != "" {
			return false
		}
	}
	return true
}
