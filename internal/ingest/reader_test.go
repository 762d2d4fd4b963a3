package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func readAllRows(t *testing.T, r TableReader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestOpenTableCSV(t *testing.T) {
	data := "Name,Mobile Number,Pledge,Paid\nJohn Doe,1234567890,1000,500\nJane Smith,0987654321,2000,2000\n"

	r, err := OpenTable("pledges.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	want := []string{"Name", "Mobile Number", "Pledge", "Paid"}
	if got := r.Headers(); len(got) != len(want) {
		t.Fatalf("headers = %v, want %v", got, want)
	}

	rows := readAllRows(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Index != 1 || rows[1].Index != 2 {
		t.Errorf("row indices = %d,%d, want 1,2", rows[0].Index, rows[1].Index)
	}
	if got := rows[0].Values["Mobile Number"]; got != "1234567890" {
		t.Errorf("row 1 mobile = %q, want %q", got, "1234567890")
	}
	if got := rows[1].Values["Name"]; got != "Jane Smith" {
		t.Errorf("row 2 name = %q, want %q", got, "Jane Smith")
	}
}

func TestOpenTableCSVSkipsEmptyRows(t *testing.T) {
	data := "name,mobile,pledge,paid\n\n  , , ,\nJohn,0711,100,50\n\n"

	r, err := OpenTable("pledges.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	rows := readAllRows(t, r)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (empty rows are not data rows)", len(rows))
	}
	if rows[0].Index != 1 {
		t.Errorf("row index = %d, want 1", rows[0].Index)
	}
}

func TestOpenTableCSVWithBOM(t *testing.T) {
	data := "\xEF\xBB\xBFname,mobile,pledge,paid\nJohn,0711,100,50\n"

	r, err := OpenTable("pledges.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	if got := r.Headers()[0]; got != "name" {
		t.Errorf("first header = %q, want %q (BOM must be stripped)", got, "name")
	}
}

func TestOpenTableShortAndLongRows(t *testing.T) {
	// A short row pads with empty cells; extra cells are dropped.
	data := "name,mobile,pledge,paid\nJohn,0711\nJane,0722,100,50,extra\n"

	r, err := OpenTable("pledges.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	rows := readAllRows(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0].Values["pledge"]; got != "" {
		t.Errorf("short row pledge = %q, want empty", got)
	}
	if got := rows[1].Values["paid"]; got != "50" {
		t.Errorf("long row paid = %q, want %q", got, "50")
	}
}

func TestOpenTableEmptyFile(t *testing.T) {
	_, err := OpenTable("pledges.csv", strings.NewReader(""))
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("error = %v, want ErrNoHeader", err)
	}
}

func TestOpenTableHeaderOnly(t *testing.T) {
	r, err := OpenTable("pledges.csv", strings.NewReader("name,mobile,pledge,paid\n"))
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	if rows := readAllRows(t, r); len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestOpenTableLegacyXLS(t *testing.T) {
	_, err := OpenTable("pledges.xls", strings.NewReader("junk"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func buildWorkbook(t *testing.T, rows [][]any) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, cells := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatalf("set sheet row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestOpenTableXLSX(t *testing.T) {
	wb := buildWorkbook(t, [][]any{
		{"Name", "Phone Number", "Pledge", "Paid"},
		{"John Doe", "1234567890", 1000, 500},
		{"Jane Smith", "0987654321", 2000, 2000},
	})

	r, err := OpenTable("pledges.xlsx", wb)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	if got := r.Headers()[1]; got != "Phone Number" {
		t.Errorf("header = %q, want %q", got, "Phone Number")
	}

	rows := readAllRows(t, r)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if got := rows[0].Values["Pledge"]; got != "1000" {
		t.Errorf("row 1 pledge = %q, want %q", got, "1000")
	}
}

func TestOpenTableSniffsXLSXWithoutExtension(t *testing.T) {
	wb := buildWorkbook(t, [][]any{
		{"name", "mobile", "pledge", "paid"},
		{"John", "0711", 100, 50},
	})

	r, err := OpenTable("upload", wb)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer r.Close()

	if rows := readAllRows(t, r); len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestOpenTableXLSXNoHeader(t *testing.T) {
	wb := buildWorkbook(t, nil)
	_, err := OpenTable("pledges.xlsx", wb)
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("error = %v, want ErrNoHeader", err)
	}
}

func TestOpenTableCorruptXLSX(t *testing.T) {
	_, err := OpenTable("pledges.xlsx", strings.NewReader("PK\x03\x04 not really a zip"))
	if !errors.Is(err, ErrBadFile) {
		t.Errorf("error = %v, want ErrBadFile", err)
	}
}

func TestRowValuesDuplicateHeaderLeftmostWins(t *testing.T) {
	values := rowValues([]string{"name", "amount", "amount"}, []string{"John", "10", "20"})
	if got := values["amount"]; got != "10" {
		t.Errorf("duplicate header value = %q, want leftmost %q", got, "10")
	}
}
