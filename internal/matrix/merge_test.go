package matrix

import (
	"testing"

	"esgrec/internal/core"
)

func fullQuantities(v float64) []*float64 {
	qs := make([]*float64, core.MonthsPerYear)
	for i := range qs {
		f := v
		qs[i] = &f
	}
	return qs
}

func TestMergeUnionCompleteness(t *testing.T) {
	accounts := []core.Account{
		{ID: 1, Name: "Electricity", Unit: "kWh"},
		{ID: 2, Name: "Water", Unit: "t"},
		{ID: 3, Name: "Gas", Unit: "m3"},
	}
	records := []core.MonthlyRecord{
		{AccountID: 1, AccountName: "old name", MonthlyQuantities: fullQuantities(1)},
		{AccountID: 99, AccountName: "Removed item", MonthlyQuantities: fullQuantities(2)},
	}

	rows := Merge(accounts, records)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows (3 accounts + 1 orphan), got %d", len(rows))
	}
	seen := map[core.AccountID]int{}
	for _, r := range rows {
		seen[r.AccountID]++
	}
	for _, id := range []core.AccountID{1, 2, 3, 99} {
		if seen[id] != 1 {
			t.Fatalf("account %d appears %d times", id, seen[id])
		}
	}
}

func TestMergeFlagsAndMetadata(t *testing.T) {
	accounts := []core.Account{
		{ID: 1, Name: "Electricity", Unit: "kWh", StyleName: "usage"},
		{ID: 2, Name: "Water", Unit: "t", StyleName: "usage"},
	}
	records := []core.MonthlyRecord{
		{AccountID: 1, AccountName: "stale", Unit: "Wh", StyleCaption: "old", MonthlyQuantities: fullQuantities(1)},
		{AccountID: 99, AccountName: "Removed", Unit: "kg", StyleCaption: "hist", MonthlyQuantities: fullQuantities(2)},
	}

	rows := Merge(accounts, records)

	matched := rows[0]
	if matched.IsNewAccount || matched.IsOrphanRecord {
		t.Fatalf("matched row should carry no flags: %+v", matched)
	}
	// The dimension is authoritative for display attributes.
	if matched.AccountName != "Electricity" || matched.Unit != "kWh" || matched.StyleName != "usage" {
		t.Fatalf("matched row kept stale fact metadata: %+v", matched)
	}
	if matched.Total != 12 {
		t.Fatalf("expected total 12, got %v", matched.Total)
	}

	fresh := rows[1]
	if !fresh.IsNewAccount || fresh.IsOrphanRecord {
		t.Fatalf("account without data should be flagged new: %+v", fresh)
	}
	for m, c := range fresh.Months {
		if c.Valid {
			t.Fatalf("new-account row month %d should be blank", m+1)
		}
	}
	if fresh.Total != 0 {
		t.Fatalf("new-account row total should be 0, got %v", fresh.Total)
	}

	orphan := rows[2]
	if !orphan.IsOrphanRecord || orphan.IsNewAccount {
		t.Fatalf("record without account should be flagged orphan: %+v", orphan)
	}
	// No dimension entry exists, so the fact's embedded metadata is the fallback.
	if orphan.AccountName != "Removed" || orphan.Unit != "kg" || orphan.StyleName != "hist" {
		t.Fatalf("orphan row lost fact metadata: %+v", orphan)
	}

	for _, r := range rows {
		if r.IsNewAccount && r.IsOrphanRecord {
			t.Fatalf("flags must be mutually exclusive: %+v", r)
		}
	}
}

func TestMergeOrder(t *testing.T) {
	accounts := []core.Account{{ID: 2, Name: "b"}, {ID: 1, Name: "a"}}
	records := []core.MonthlyRecord{
		{AccountID: 50, MonthlyQuantities: fullQuantities(1)},
		{AccountID: 40, MonthlyQuantities: fullQuantities(1)},
	}
	rows := Merge(accounts, records)
	wantOrder := []core.AccountID{2, 1, 50, 40}
	for i, id := range wantOrder {
		if rows[i].AccountID != id {
			t.Fatalf("position %d: got account %d, want %d", i, rows[i].AccountID, id)
		}
	}
}

func TestMergeNilMatrix(t *testing.T) {
	accounts := []core.Account{{ID: 1, Name: "a"}}
	rows := Merge(accounts, nil)
	if len(rows) != 1 || !rows[0].IsNewAccount {
		t.Fatalf("expected one new-account row, got %+v", rows)
	}
}
