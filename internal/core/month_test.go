package core

import "testing"

func TestSlotForMonthBijection(t *testing.T) {
	seen := map[MonthSlot]bool{}
	for m := 1; m <= MonthsPerYear; m++ {
		slot := SlotForMonth(m)
		if seen[slot] {
			t.Fatalf("slot %q produced twice", slot)
		}
		seen[slot] = true
		if got := slot.Month(); got != m {
			t.Fatalf("round trip for month %d: got %d", m, got)
		}
	}
	if len(seen) != MonthsPerYear {
		t.Fatalf("expected 12 distinct slots, got %d", len(seen))
	}
}

func TestSlotForMonthOutOfRangePanics(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for month %d", m)
				}
			}()
			SlotForMonth(m)
		}()
	}
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot("mar")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if slot.Month() != 3 {
		t.Fatalf("expected month 3, got %d", slot.Month())
	}
	if _, err := ParseSlot("march"); err == nil {
		t.Fatalf("expected error for unknown slot")
	}
}
