// Package export renders tabular results as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Type is a download file type.
type Type string

const (
	TypeCSV  Type = "csv"
	TypeXLSX Type = "xlsx"
)

// ParseType validates a requested file type, defaulting to CSV.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case "", TypeCSV:
		return TypeCSV, nil
	case TypeXLSX:
		return TypeXLSX, nil
	}
	return "", fmt.Errorf("unsupported export type %q", raw)
}

// ContentType returns the MIME type of t.
func (t Type) ContentType() string {
	if t == TypeXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Table is a header row plus data rows.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Filename is the download name of the table in type t.
func (t *Table) Filename(typ Type) string {
	return t.Title + "." + string(typ)
}

// Write renders the table in the requested type.
func (t *Table) Write(w io.Writer, typ Type) error {
	if typ == TypeXLSX {
		return t.WriteXLSX(w)
	}
	return t.WriteCSV(w)
}

// WriteCSV writes the table as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

const sheetName = "Results"

// WriteXLSX writes the table as a single-sheet workbook with a bold,
// frozen header row.
func (t *Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, axis, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(t.Header) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		if err := f.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
