package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var reportHeader = []string{"Row", "Column", "Value", "Severity", "Message"}

// reportRows flattens header errors and per-row findings into one list,
// in file order.
func reportRows(result *ParseResult) [][]string {
	out := make([][]string, 0, len(result.HeaderErrors))
	add := func(e ValidationError) {
		row := "-"
		if e.RowNumber > 0 {
			row = fmt.Sprintf("%d", e.RowNumber)
		}
		out = append(out, []string{row, e.Column, e.Value, string(e.Severity), e.Message})
	}
	for _, e := range result.HeaderErrors {
		add(e)
	}
	for _, r := range result.Rows {
		for _, e := range r.Errors {
			add(e)
		}
	}
	return out
}

// WriteErrorReportCSV writes all validation findings of a parse as CSV.
func WriteErrorReportCSV(w io.Writer, result *ParseResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return errors.Wrap(err, "failed to write report header")
	}
	for _, row := range reportRows(result) {
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "failed to write report row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush report")
}

// WriteErrorReportXLSX writes the same findings as a single-sheet workbook.
func WriteErrorReportXLSX(w io.Writer, result *ParseResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Validation Errors"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return errors.Wrap(err, "failed to create sheet")
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "failed to drop default sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	for i, name := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return errors.Wrap(err, "failed to compute cell name")
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return errors.Wrap(err, "failed to write header cell")
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return errors.Wrap(err, "failed to style header cell")
		}
	}

	for rowIdx, row := range reportRows(result) {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return errors.Wrap(err, "failed to compute cell name")
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return errors.Wrap(err, "failed to write report cell")
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "B", 18); err != nil {
		return errors.Wrap(err, "failed to set column widths")
	}
	if err := f.SetColWidth(sheet, "E", "E", 60); err != nil {
		return errors.Wrap(err, "failed to set message column width")
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}

// WriteImportErrorsCSV writes the row-level failures of an executed import.
func WriteImportErrorsCSV(w io.Writer, summary *ImportSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Row", "Entity", "Reason"}); err != nil {
		return errors.Wrap(err, "failed to write report header")
	}
	for _, e := range summary.Errors {
		rec := []string{fmt.Sprintf("%d", e.RowNumber), e.EntityName, e.Reason}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write report row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush report")
}
