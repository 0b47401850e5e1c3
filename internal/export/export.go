// Package export writes a screener view as CSV, XLSX or a terminal table.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/xuri/excelize/v2"

	"screener/internal/engine"
	"screener/internal/models"
)

// SheetName is the worksheet holding the exported view.
const SheetName = "Screener"

// Header is the exported column order, matching the page.
func Header() []string {
	return append([]string{"S.No", engine.NameColumn}, engine.FilterColumns...)
}

func record(row models.ViewRow) []string {
	rec := make([]string, 0, len(engine.FilterColumns)+2)
	rec = append(rec, strconv.Itoa(row.SNo), row.Name)
	for _, c := range engine.FilterColumns {
		rec = append(rec, row.Cells[c])
	}
	return rec
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []models.ViewRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. Numeric cells are stored as numbers.
func WriteXLSX(w io.Writer, rows []models.ViewRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := Header()
	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		rec := record(row)
		vals := make([]interface{}, len(rec))
		vals[0] = row.SNo
		vals[1] = row.Name
		for j := 2; j < len(rec); j++ {
			if n, err := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64); err == nil {
				vals[j] = n
			} else {
				vals[j] = rec[j]
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", row.SNo, err)
		}
	}

	_, err = f.WriteTo(w)
	return err
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Table renders the rows for a terminal.
func Table(rows []models.ViewRow) string {
	data := make([][]string, len(rows))
	for i, row := range rows {
		data[i] = record(row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(Header()...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}
