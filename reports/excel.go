package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const excelColumnWidth = 15

func writeExcel(w io.Writer, table Table, options *Options) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := options.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
	}

	if err := setExcelRow(f, sheet, 1, table.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	styleID, err := f.NewStyle(headerStyle(options.HeaderColor))
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(table.Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, styleID); err != nil {
		return fmt.Errorf("failed to apply header style: %w", err)
	}

	for i, row := range table.Rows {
		if err := setExcelRow(f, sheet, i+2, row); err != nil {
			return fmt.Errorf("failed to write data row %d: %w", i, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(table.Headers))
	if err := f.SetColWidth(sheet, "A", lastCol, excelColumnWidth); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func setExcelRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func headerStyle(color string) *excelize.Style {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	return &excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}
}
