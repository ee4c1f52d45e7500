package core

import "fmt"

// MonthsPerYear is the fixed width of the month axis. The grid is never
// paginated: every row carries exactly twelve slots.
const MonthsPerYear = 12

// MonthSlot is the fixed column name of a month in the dense grid ("jan".."dec").
type MonthSlot string

const (
	SlotJan MonthSlot = "jan"
	SlotFeb MonthSlot = "feb"
	SlotMar MonthSlot = "mar"
	SlotApr MonthSlot = "apr"
	SlotMay MonthSlot = "may"
	SlotJun MonthSlot = "jun"
	SlotJul MonthSlot = "jul"
	SlotAug MonthSlot = "aug"
	SlotSep MonthSlot = "sep"
	SlotOct MonthSlot = "oct"
	SlotNov MonthSlot = "nov"
	SlotDec MonthSlot = "dec"
)

// MonthSlots lists all slots in calendar order; MonthSlots[m-1] is month m.
var MonthSlots = [MonthsPerYear]MonthSlot{
	SlotJan, SlotFeb, SlotMar, SlotApr, SlotMay, SlotJun,
	SlotJul, SlotAug, SlotSep, SlotOct, SlotNov, SlotDec,
}

var slotToMonth = func() map[MonthSlot]int {
	m := make(map[MonthSlot]int, MonthsPerYear)
	for i, s := range MonthSlots {
		m[s] = i + 1
	}
	return m
}()

// SlotForMonth maps a month ordinal (1..12) to its slot name.
// An out-of-range month is a programming error, not a data condition.
func SlotForMonth(month int) MonthSlot {
	if month < 1 || month > MonthsPerYear {
		panic(fmt.Sprintf("core: month %d out of range 1..12", month))
	}
	return MonthSlots[month-1]
}

// Month maps a slot name back to its month ordinal (1..12).
// An unknown slot is a programming error, not a data condition.
func (s MonthSlot) Month() int {
	m, ok := slotToMonth[s]
	if !ok {
		panic(fmt.Sprintf("core: unknown month slot %q", string(s)))
	}
	return m
}

// ParseSlot converts externally supplied input (query params, messages) into a
// MonthSlot, returning an error instead of panicking on bad data.
func ParseSlot(s string) (MonthSlot, error) {
	slot := MonthSlot(s)
	if _, ok := slotToMonth[slot]; !ok {
		return "", fmt.Errorf("unknown month slot %q", s)
	}
	return slot, nil
}
