// Package export serializes store snapshots to CSV and XLSX.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

// Default download file names.
const (
	DefaultCSVName  = "linkedin_data.csv"
	DefaultXLSXName = "linkedin_data.xlsx"
)

const (
	sheetName   = "Leads"
	maxColWidth = 60.0
	minColWidth = 10.0
)

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no data to export")

// WriteCSV writes rows as UTF-8 CSV with every field quoted and CRLF line breaks.
func WriteCSV(w io.Writer, rows [][]string) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	var buf bytes.Buffer
	for i, row := range rows {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		for j, field := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteXLSX writes rows to a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, rows [][]string) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, width := range columnWidths(rows) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	return f.Write(w)
}

// columnWidths sizes each column to its widest cell in display columns, clamped.
func columnWidths(rows [][]string) []float64 {
	var widths []float64
	for _, row := range rows {
		for i, v := range row {
			for len(widths) <= i {
				widths = append(widths, minColWidth)
			}
			w := float64(runewidth.StringWidth(v)) + 2
			if w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColWidth {
			widths[i] = maxColWidth
		}
	}
	return widths
}

// WriteFile writes rows to path, choosing XLSX for a .xlsx extension and CSV otherwise.
func WriteFile(path string, rows [][]string) error {
	if len(rows) == 0 {
		return ErrNoData
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = WriteXLSX(file, rows)
	} else {
		err = WriteCSV(file, rows)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}
