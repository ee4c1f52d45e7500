package matrix

import (
	"reflect"
	"testing"

	"esgrec/internal/core"
)

func editFixture() []core.GridRow {
	rows := ToGridRows([]core.MonthlyRecord{
		{AccountID: 1, AccountName: "Electricity", MonthlyQuantities: fullQuantities(1)},
		{AccountID: 2, AccountName: "Water", MonthlyQuantities: make([]*float64, core.MonthsPerYear)},
	})
	return rows
}

func TestApplyEditLocality(t *testing.T) {
	rows := editFixture()
	before := make([]core.GridRow, len(rows))
	copy(before, rows)

	out := ApplyEdit(rows, 0, core.SlotMar, "50")

	if !reflect.DeepEqual(rows, before) {
		t.Fatalf("input rows were mutated")
	}
	if out[0].CellAt(core.SlotMar).Value != 50 {
		t.Fatalf("mar not updated: %+v", out[0].CellAt(core.SlotMar))
	}
	if out[0].Total != 11+50 {
		t.Fatalf("expected total 61, got %v", out[0].Total)
	}
	// Only the target row's mar and total change.
	changed := out[0]
	changed.Months[core.SlotMar.Month()-1] = before[0].Months[core.SlotMar.Month()-1]
	changed.Total = before[0].Total
	if changed != before[0] {
		t.Fatalf("fields beyond mar/total changed: %+v vs %+v", out[0], before[0])
	}
	if out[1] != before[1] {
		t.Fatalf("untouched row changed: %+v vs %+v", out[1], before[1])
	}
}

func TestApplyEditBlankRow(t *testing.T) {
	rows := editFixture()
	out := ApplyEdit(rows, 1, core.SlotJan, "1200")
	if got := out[1].CellAt(core.SlotJan); !got.Valid || got.Value != 1200 {
		t.Fatalf("jan should be 1200, got %+v", got)
	}
	if out[1].Total != 1200 {
		t.Fatalf("expected total 1200, got %v", out[1].Total)
	}
}

func TestApplyEditClearsCell(t *testing.T) {
	rows := editFixture()
	out := ApplyEdit(rows, 0, core.SlotJan, "")
	if out[0].CellAt(core.SlotJan).Valid {
		t.Fatalf("jan should be blank after clearing")
	}
	if out[0].Total != 11 {
		t.Fatalf("expected total 11, got %v", out[0].Total)
	}
}

func TestApplyEditOutOfRange(t *testing.T) {
	rows := editFixture()
	for _, idx := range []int{-1, 2, 100} {
		out := ApplyEdit(rows, idx, core.SlotJan, 5)
		if !reflect.DeepEqual(out, rows) {
			t.Fatalf("index %d should be a no-op", idx)
		}
	}
}
