package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName       = "Sheet1"
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	utf8BOM         = "\uFEFF"
)

// File is a generated download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ContentTypeFor returns the MIME type of a sheet in format.
func ContentTypeFor(format domain.ExportFormat) string {
	if format == domain.ExportXLSX {
		return xlsxContentType
	}
	return csvContentType
}

// encodeSheet renders rows as CSV (with a BOM so spreadsheet apps pick UTF-8)
// or as a single-sheet workbook.
func encodeSheet(rows [][]string, format domain.ExportFormat) ([]byte, error) {
	if format == domain.ExportXLSX {
		return encodeXLSX(rows)
	}

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeSheet reads the first sheet of a workbook, or a CSV document when the
// payload is not a zip archive.
func decodeSheet(data []byte) ([][]string, error) {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, invalidf("unreadable workbook")
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, invalidf("unreadable workbook")
		}
		return rows, nil
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(utf8BOM))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, invalidf("unreadable csv: %v", err)
	}
	return rows, nil
}

// normalizeHeader folds a header cell so "Role Names", "roleNames" and
// "role names (comma separated)" compare equal.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "(（"); i >= 0 {
		s = s[:i]
	}
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
