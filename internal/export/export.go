// Package export renders a reconciled grid as an Excel workbook. Blank cells
// stay blank in the sheet, so "never measured" is distinguishable from a
// measured 0 in the downloaded file too.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"esgrec/internal/core"
)

const sheetName = "Matrix"

var headers = []string{
	"Account ID", "Account", "Unit",
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
	"Total",
}

// Workbook builds the export workbook for one (company, year) grid.
// The caller owns the returned file and must Close it.
func Workbook(companyID int64, year int, rows []core.GridRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("Company %d - %d", companyID, year)
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		f.Close()
		return nil, fmt.Errorf("write title: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, row := range rows {
		line := i + 3
		values := []any{int64(row.AccountID), row.AccountName, row.Unit}
		for _, cell := range row.Months {
			if cell.Valid {
				values = append(values, cell.Value)
			} else {
				values = append(values, nil) // blank stays blank
			}
		}
		values = append(values, row.Total)

		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, line)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("write row %d: %w", i, err)
			}
		}
	}

	return f, nil
}

// Write renders the grid and streams the workbook to w.
func Write(w io.Writer, companyID int64, year int, rows []core.GridRow) error {
	f, err := Workbook(companyID, year, rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
