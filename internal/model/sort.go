package model

import (
	"sort"

	"gymschedule/internal/slots"
)

// SortReservations orders rows by slot, then by member id.
func SortReservations(rows []Reservation) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := slots.Compare(rows[i].Slot, rows[j].Slot); c != 0 {
			return c < 0
		}
		return rows[i].Member < rows[j].Member
	})
}

// MemberSlots returns the sorted slots held by member.
func MemberSlots(rows []Reservation, member string) []slots.Slot {
	var out []slots.Slot
	for _, r := range rows {
		if r.Member == member {
			out = append(out, r.Slot)
		}
	}
	slots.Sort(out)
	return out
}
