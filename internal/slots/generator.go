package slots

import (
	"sort"

	"gymschedule/internal/calendar"
	"gymschedule/internal/cursor"
)

// MonthSlots returns every slot of the month in day-then-hour order, skipping
// the closed weekday.
func (s *Schedule) MonthSlots(year, month int) []Slot {
	days := calendar.DaysInMonth(year, month)
	result := make([]Slot, 0, days*len(s.hours))
	for day := 1; day <= days; day++ {
		if s.IsClosed(year, month, day) {
			continue
		}
		label := DayLabel(year, month, day)
		for _, h := range s.hours {
			result = append(result, Slot{Day: label, Hour: h.label})
		}
	}
	return result
}

// FutureSlotsAtHour returns the slots at hour in c's month that come strictly
// after ToSlot(c), one per open day.
func (s *Schedule) FutureSlotsAtHour(c cursor.Cursor, hour string) []Slot {
	now := s.ToSlot(c)
	var result []Slot
	for day := 1; day <= calendar.DaysInMonth(c.Year, c.Month); day++ {
		if s.IsClosed(c.Year, c.Month, day) {
			continue
		}
		slot := Slot{Day: DayLabel(c.Year, c.Month, day), Hour: hour}
		if Compare(slot, now) > 0 {
			result = append(result, slot)
		}
	}
	return result
}

// Partition splits sorted slots at the first one not before ToSlot(c).
// The boundary slot belongs to future. Both halves share the input's backing array.
func (s *Schedule) Partition(sorted []Slot, c cursor.Cursor) (past, future []Slot) {
	now := s.ToSlot(c)
	idx := sort.Search(len(sorted), func(i int) bool {
		return Compare(sorted[i], now) >= 0
	})
	return sorted[:idx], sorted[idx:]
}

// AvailableDays returns the day numbers of the month that have slots.
func (s *Schedule) AvailableDays(year, month int) []int {
	var days []int
	for day := 1; day <= calendar.DaysInMonth(year, month); day++ {
		if !s.IsClosed(year, month, day) {
			days = append(days, day)
		}
	}
	return days
}
