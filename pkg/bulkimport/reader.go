// Package bulkimport loads staff from spreadsheet files: parse, validate in
// passes, and either insert every row in one transaction (clean file) or
// write nothing and hand back an annotated copy marking the failures.
package bulkimport

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/staffdir/staffdir/pkg/apperr"
)

// maxRows bounds one import file; bigger files must be split.
const maxRows = 5000

// templateHeader is the required first row, compared case-insensitively.
var templateHeader = []string{
	"Full Name",
	"Staff Code",
	"Email",
	"Phone Number",
	"Department ID",
	"Department Name",
	"Role Title",
	"Team",
	"Line Manager Email",
}

// Row is one parsed data line. Error carries the row's first validation
// failure; later passes leave an already-flagged row untouched.
type Row struct {
	Line           int
	FullName       string
	StaffCode      string
	Email          string
	PhoneNumber    string
	DepartmentID   string
	DepartmentName string
	RoleTitleName  string
	TeamName       string
	ManagerEmail   string

	Error string
}

func (r *Row) fail(message string) {
	if r.Error == "" {
		r.Error = message
	}
}

func (r *Row) ok() bool {
	return r.Error == ""
}

// ParseFile dispatches on the file extension. Anything that is not a
// spreadsheet is rejected before parsing.
func ParseFile(fileName string, data []byte) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xls":
		return parseExcel(data)
	case ".csv":
		return parseCSV(data)
	default:
		return nil, apperr.ErrBadFileFormat
	}
}

func parseExcel(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.ErrBadFileFormat
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.ErrWrongTemplate
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.ErrWrongTemplate
	}
	return buildRows(records)
}

func parseCSV(data []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.ErrBadFileFormat
		}
		records = append(records, record)
	}
	return buildRows(records)
}

// buildRows checks the template shape and turns raw records into Rows.
// Fully empty lines are skipped, as spreadsheet exports tend to trail them.
func buildRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, apperr.ErrWrongTemplate
	}
	if !headerMatches(records[0]) {
		return nil, apperr.ErrWrongTemplate
	}
	if len(records)-1 > maxRows {
		return nil, apperr.ErrWrongTemplate
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		cell := func(col int) string {
			if col < len(record) {
				return strings.TrimSpace(record[col])
			}
			return ""
		}
		rows = append(rows, Row{
			Line:           i + 2, // 1-based, after the header
			FullName:       cell(0),
			StaffCode:      cell(1),
			Email:          cell(2),
			PhoneNumber:    cell(3),
			DepartmentID:   cell(4),
			DepartmentName: cell(5),
			RoleTitleName:  cell(6),
			TeamName:       cell(7),
			ManagerEmail:   cell(8),
		})
	}
	return rows, nil
}

func headerMatches(header []string) bool {
	if len(header) < len(templateHeader) {
		return false
	}
	for i, want := range templateHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return false
		}
	}
	return true
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
