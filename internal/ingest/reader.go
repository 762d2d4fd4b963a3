package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Structural input errors. These fail the whole run before any row is
// reconciled.
var (
	ErrNoHeader          = errors.New("no header row found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrBadFile           = errors.New("file could not be decoded")
)

// zipMagic is the signature of a zip archive, which is what an .xlsx
// file is under the hood.
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// TableReader yields the data rows of an uploaded file in original
// order. It is finite and not restartable once consumed. Fully-empty
// rows are not data rows and are never emitted.
type TableReader interface {
	// Headers returns the literal header strings, in column order.
	Headers() []string

	// Next returns the next data row, or io.EOF when the file is
	// exhausted.
	Next() (Row, error)

	Close() error
}

// OpenTable picks a parser from the filename extension, falling back to
// content sniffing, and returns a reader positioned after the header
// row. A missing or unreadable header row is a fatal input error.
func OpenTable(filename string, r io.Reader) (TableReader, error) {
	br := bufio.NewReader(r)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return newCSVReader(br)
	case ".xlsx", ".xlsm":
		return newSpreadsheetReader(br)
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls files are not supported, save as .xlsx or .csv", ErrUnsupportedFormat)
	default:
		head, _ := br.Peek(len(zipMagic))
		if bytes.Equal(head, zipMagic) {
			return newSpreadsheetReader(br)
		}
		return newCSVReader(br)
	}
}

// rowValues maps header strings to the cells of one record. For
// duplicated literal headers the leftmost column wins; cells beyond the
// header width are dropped, short rows pad with empty strings.
func rowValues(headers []string, cells []string) map[string]string {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if _, dup := values[h]; dup {
			continue
		}
		if i < len(cells) {
			values[h] = cells[i]
		} else {
			values[h] = ""
		}
	}
	return values
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// csvReader streams delimited text through the BOM-skipping and UTF-8
// sanitizing wrappers.
type csvReader struct {
	r       *csv.Reader
	headers []string
	index   int
}

func newCSVReader(r io.Reader) (*csvReader, error) {
	cr := csv.NewReader(wrapTextStream(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	// The header is the first non-empty record.
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
		}
		if isEmptyRow(rec) {
			continue
		}
		return &csvReader{r: cr, headers: rec}, nil
	}
}

func (c *csvReader) Headers() []string { return c.headers }

func (c *csvReader) Next() (Row, error) {
	for {
		rec, err := c.r.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, fmt.Errorf("read row: %w", err)
		}
		if isEmptyRow(rec) {
			continue
		}
		c.index++
		return Row{Index: c.index, Values: rowValues(c.headers, rec)}, nil
	}
}

func (c *csvReader) Close() error { return nil }

// spreadsheetReader reads the first sheet of an xlsx workbook using
// excelize's streaming row iterator.
type spreadsheetReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
	index   int
}

func newSpreadsheetReader(r io.Reader) (*spreadsheetReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
	}

	sheet := f.GetSheetName(0)
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("open spreadsheet: %w", ErrNoHeader)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	sr := &spreadsheetReader{file: f, rows: rows}
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			sr.Close()
			return nil, fmt.Errorf("read header row: %w", err)
		}
		if isEmptyRow(cells) {
			continue
		}
		sr.headers = cells
		return sr, nil
	}
	sr.Close()
	return nil, ErrNoHeader
}

func (s *spreadsheetReader) Headers() []string { return s.headers }

func (s *spreadsheetReader) Next() (Row, error) {
	for s.rows.Next() {
		cells, err := s.rows.Columns()
		if err != nil {
			return Row{}, fmt.Errorf("read row: %w", err)
		}
		if isEmptyRow(cells) {
			continue
		}
		s.index++
		return Row{Index: s.index, Values: rowValues(s.headers, cells)}, nil
	}
	if err := s.rows.Error(); err != nil {
		return Row{}, fmt.Errorf("read rows: %w", err)
	}
	return Row{}, io.EOF
}

func (s *spreadsheetReader) Close() error {
	if s.rows != nil {
		s.rows.Close()
	}
	return s.file.Close()
}
