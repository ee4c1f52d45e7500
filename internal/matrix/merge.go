package matrix

import "esgrec/internal/core"

// Merge combines the dimension list and the fact records into one row set
// keyed by account id. The result is a set union: accounts without data show
// as blank IsNewAccount rows, records without an account survive as
// IsOrphanRecord rows, so neither side ever silently disappears from the grid.
//
// Accounts come first in dimension order; orphan records are appended in fact
// order. For matched rows the account's display metadata wins over whatever
// stale metadata the record embeds.
func Merge(accounts []core.Account, records []core.MonthlyRecord) []core.GridRow {
	recByID := make(map[core.AccountID]core.MonthlyRecord, len(records))
	for _, rec := range records {
		if _, dup := recByID[rec.AccountID]; !dup {
			recByID[rec.AccountID] = rec
		}
	}

	rows := make([]core.GridRow, 0, len(accounts)+len(records))
	seen := make(map[core.AccountID]bool, len(accounts))

	for _, acc := range accounts {
		if seen[acc.ID] {
			continue
		}
		seen[acc.ID] = true
		if rec, ok := recByID[acc.ID]; ok {
			row := rowFromRecord(rec)
			row.AccountName = acc.Name
			row.Unit = acc.Unit
			row.StyleName = acc.StyleName
			rows = append(rows, row)
			continue
		}
		rows = append(rows, core.GridRow{
			AccountID:    acc.ID,
			AccountName:  acc.Name,
			Unit:         acc.Unit,
			StyleName:    acc.StyleName,
			IsNewAccount: true,
		})
	}

	for _, rec := range records {
		if seen[rec.AccountID] {
			continue
		}
		seen[rec.AccountID] = true
		row := rowFromRecord(rec)
		row.IsOrphanRecord = true
		rows = append(rows, row)
	}

	return rows
}
