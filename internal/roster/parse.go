package roster

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"satpam/internal/checkday"
)

// Column headers of the roster sheet.
const (
	HeaderDate = "Tanggal"
	HeaderName = "Nama Satpam"
)

const maxXLSRows = 100000

// maxDateSerial is 9999-12-31 in the 1900 date system.
const maxDateSerial = 2958465

var ErrUnsupportedFormat = errors.New("roster must be an .xlsx or .xls file")

// Row is one data line of a roster sheet. Line is the 1-based sheet row.
type Row struct {
	Line int
	Date string
	Name string
}

// Problem points at one offending sheet row.
type Problem struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ValidationError rejects a whole roster; nothing from it is written.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid roster"
	}
	first := e.Problems[0]
	msg := fmt.Sprintf("invalid roster: row %d: %s", first.Line, first.Message)
	if n := len(e.Problems) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func invalid(line int, format string, args ...any) *ValidationError {
	return &ValidationError{Problems: []Problem{{Line: line, Message: fmt.Sprintf(format, args...)}}}
}

// Parse reads the first worksheet of an uploaded roster.
func Parse(filename string, data []byte) ([]Row, error) {
	raw, err := readRows(filename, data)
	if err != nil {
		return nil, err
	}
	return parseRows(raw)
}

func readRows(filename string, data []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open xls: %w", err)
		}
		if wb.NumSheets() == 0 {
			return nil, invalid(1, "no worksheet found")
		}
		return wb.ReadAllCells(maxXLSRows), nil
	case ".xlsx":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer func() { _ = f.Close() }()

		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, invalid(1, "no worksheet found")
		}
		return f.GetRows(sheet, excelize.Options{RawCellValue: true})
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseRows(raw [][]string) ([]Row, error) {
	if len(raw) == 0 {
		return nil, invalid(1, "worksheet is empty")
	}

	dateCol, nameCol := -1, -1
	for i, h := range raw[0] {
		switch normalizeHeader(h) {
		case normalizeHeader(HeaderDate):
			dateCol = i
		case normalizeHeader(HeaderName):
			nameCol = i
		}
	}
	verr := &ValidationError{}
	if dateCol < 0 {
		verr.Problems = append(verr.Problems, Problem{Line: 1, Message: "missing column " + HeaderDate})
	}
	if nameCol < 0 {
		verr.Problems = append(verr.Problems, Problem{Line: 1, Message: "missing column " + HeaderName})
	}
	if len(verr.Problems) > 0 {
		return nil, verr
	}

	var rows []Row
	for i, cells := range raw[1:] {
		line := i + 2
		if blank(cells) {
			continue
		}
		date, name := cell(cells, dateCol), cell(cells, nameCol)
		switch {
		case date == "" && name == "":
			// values only outside the roster columns
			verr.Problems = append(verr.Problems, Problem{Line: line, Message: "missing " + HeaderDate + " and " + HeaderName})
			continue
		case date == "":
			verr.Problems = append(verr.Problems, Problem{Line: line, Message: "missing " + HeaderDate})
			continue
		case name == "":
			verr.Problems = append(verr.Problems, Problem{Line: line, Message: "missing " + HeaderName})
			continue
		}
		label, err := parseDate(date)
		if err != nil {
			verr.Problems = append(verr.Problems, Problem{Line: line, Message: err.Error()})
			continue
		}
		rows = append(rows, Row{Line: line, Date: label, Name: name})
	}

	if len(verr.Problems) > 0 {
		return nil, verr
	}
	if len(rows) == 0 {
		return nil, invalid(2, "no data rows")
	}
	return rows, nil
}

var dateLayouts = []string{
	checkday.LabelLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseDate turns a spreadsheet serial or an ISO-like string into a day label.
// The calendar date is taken as written; no zone conversion happens.
func parseDate(s string) (string, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(serial) || serial < 1 || serial >= maxDateSerial+1 {
			return "", fmt.Errorf("date serial %q out of range", s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", fmt.Errorf("date serial %q: %w", s, err)
		}
		return t.Format(checkday.LabelLayout), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(checkday.LabelLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", s)
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
