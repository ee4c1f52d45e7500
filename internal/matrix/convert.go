// Package matrix reconciles the Account dimension list with the sparse
// monthly record facts and presents them as one dense, editable grid.
//
// All transformation functions here are pure and synchronous; I/O happens
// only behind the ports in ports.go.
package matrix

import (
	"fmt"
	"log/slog"

	"esgrec/internal/core"
)

// rowFromRecord maps one sparse fact record onto a dense grid row.
// A malformed quantity slice (wrong length) is treated as all-blank so one
// bad record cannot block rendering of the rest of the matrix.
func rowFromRecord(rec core.MonthlyRecord) core.GridRow {
	row := core.GridRow{
		AccountID:   rec.AccountID,
		AccountName: rec.AccountName,
		Unit:        rec.Unit,
		StyleName:   rec.StyleCaption,
	}
	qs := rec.MonthlyQuantities
	if len(qs) != core.MonthsPerYear {
		if len(qs) != 0 {
			slog.Warn("malformed monthly quantities, treating record as empty",
				"account_id", rec.AccountID, "len", len(qs))
		}
		qs = nil
	}
	for i := range row.Months {
		if qs != nil {
			row.Months[i] = core.CellOf(qs[i])
		}
	}
	row.RecalcTotal()
	return row
}

// ToGridRows converts sparse wire records into dense grid rows, one per
// record. Every output row has a materialized total.
func ToGridRows(records []core.MonthlyRecord) []core.GridRow {
	rows := make([]core.GridRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rowFromRecord(rec))
	}
	return rows
}

// ToMatrixPayload converts edited grid rows back into the sparse save payload.
// Every record carries exactly twelve entries, each a finite number or nil;
// a row without an account id cannot be persisted and is rejected.
func ToMatrixPayload(companyID int64, year int, rows []core.GridRow) (core.RecordMatrixRequest, error) {
	req := core.RecordMatrixRequest{
		CompanyID:   companyID,
		AccountYear: year,
		Records:     make([]core.RecordPayload, 0, len(rows)),
	}
	for i, row := range rows {
		if row.AccountID == 0 {
			return core.RecordMatrixRequest{}, fmt.Errorf("row %d: %w", i, core.ErrInvalidAccountID)
		}
		qs := make([]*float64, core.MonthsPerYear)
		for m, cell := range row.Months {
			qs[m] = cell.Ptr()
		}
		req.Records = append(req.Records, core.RecordPayload{
			AccountID:         row.AccountID,
			AccountName:       row.AccountName,
			MonthlyQuantities: qs,
		})
	}
	return req, nil
}
