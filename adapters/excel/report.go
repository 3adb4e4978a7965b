// Package excel writes coordinator reports as xlsx workbooks.
package excel

import (
	"fmt"

	"binstudy/ports"

	"github.com/xuri/excelize/v2"
)

// ReportWriter implements ports.ReportWriter with excelize.
type ReportWriter struct{}

// NewReportWriter creates the writer.
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write saves the dataset as a single-sheet workbook at path.
func (w *ReportWriter) Write(path string, dataset ports.ReportDataset) error {
	f := excelize.NewFile()

	sheet := dataset.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}

	// Header row
	for i, h := range dataset.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	// Data rows
	for r, row := range dataset.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report workbook: %w", err)
	}
	return nil
}

var _ ports.ReportWriter = (*ReportWriter)(nil)
