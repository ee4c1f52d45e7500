package matrix

import (
	"slices"

	"esgrec/internal/core"
)

// ApplyEdit sets one cell on one row and recomputes that row's total,
// returning a new row slice. The input is never mutated.
//
// An out-of-range rowIndex returns the input unchanged: grid edit events can
// race with a row-set rebuild, and a stale event must not corrupt anything.
func ApplyEdit(rows []core.GridRow, rowIndex int, slot core.MonthSlot, raw any) []core.GridRow {
	if rowIndex < 0 || rowIndex >= len(rows) {
		return rows
	}
	out := slices.Clone(rows)
	out[rowIndex].SetCell(slot, raw)
	return out
}
