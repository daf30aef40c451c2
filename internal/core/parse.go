package core

// parse.go turns uploaded bytes into generic header -> value rows.
//
// Three formats are accepted. CSV goes through the streaming BOM and UTF-8
// wrappers before encoding/csv. XLSX is read with excelize and legacy XLS
// with xlsReader. Only the first sheet of a workbook is read.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// MediaType identifies the tabular format of an upload.
type MediaType string

const (
	MediaCSV     MediaType = "csv"
	MediaXLSX    MediaType = "xlsx"
	MediaXLS     MediaType = "xls"
	MediaUnknown MediaType = ""
)

// ErrNoRows is wrapped by ParseError when a file has a header but no data.
var ErrNoRows = errors.New("no data rows found")

var errUnsupported = errors.New("unsupported file type")

// ParseError is returned when a file cannot be decoded. It is fatal to the job.
type ParseError struct {
	Media MediaType
	Err   error
}

func (e *ParseError) Error() string {
	if e.Media == MediaUnknown {
		return fmt.Sprintf("decode file: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Media, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RawRow maps a raw header, as typed in the file, to the raw cell value.
type RawRow map[string]string

// Table is the parsed content of the first sheet.
type Table struct {
	Headers []string
	Rows    []RawRow
}

// DetectMediaType chooses a format from the file extension, falling back to
// the declared content type.
func DetectMediaType(fileName, contentType string) MediaType {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return MediaCSV
	case ".xlsx", ".xlsm":
		return MediaXLSX
	case ".xls":
		return MediaXLS
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "csv"), strings.HasPrefix(ct, "text/plain"):
		return MediaCSV
	case strings.Contains(ct, "spreadsheetml"):
		return MediaXLSX
	case strings.Contains(ct, "ms-excel"):
		return MediaXLS
	}
	return MediaUnknown
}

// ParseTable decodes data as the given media type.
func ParseTable(data []byte, media MediaType) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch media {
	case MediaCSV:
		records, err = readCSV(data)
	case MediaXLSX:
		records, err = readXLSX(data)
	case MediaXLS:
		records, err = readXLS(data)
	default:
		return nil, &ParseError{Media: media, Err: errUnsupported}
	}
	if err != nil {
		return nil, &ParseError{Media: media, Err: err}
	}

	table := buildTable(records)
	if len(table.Rows) == 0 {
		return nil, &ParseError{Media: media, Err: ErrNoRows}
	}
	return table, nil
}

// buildTable takes the first non-empty record as the header and keys every
// following non-empty record by it.
func buildTable(records [][]string) *Table {
	headerIdx := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return &Table{}
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = CleanCell(h)
	}

	table := &Table{Headers: headers}
	for _, rec := range records[headerIdx+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(RawRow, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = CleanCell(rec[i])
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(WrapForStreaming(bytes.NewReader(data), int64(len(data))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// readXLS reads the first sheet of a BIFF workbook. xlsReader indexes raw
// record bytes without bounds checks, so a malformed file can panic.
func readXLS(data []byte) (records [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, errors.New("no sheets found in workbook")
	}

	for _, row := range sheet.GetRows() {
		cols := row.GetCols()
		rec := make([]string, 0, len(cols))
		for _, col := range cols {
			rec = append(rec, col.GetString())
		}
		records = append(records, rec)
	}
	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
