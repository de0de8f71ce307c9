// Package slots generates and orders the bookable (day, hour) units of a month.
package slots

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gymschedule/internal/calendar"
	"gymschedule/internal/cursor"
)

// Slot is a bookable unit, e.g. {"05-Thu", "17:00"}.
type Slot struct {
	Day  string `json:"day"`
	Hour string `json:"hour"`
}

func (s Slot) String() string {
	return s.Day + " " + s.Hour
}

// DayLabel renders the zero-padded day label, e.g. "05-Thu".
func DayLabel(year, month, day int) string {
	return fmt.Sprintf("%02d-%s", day, calendar.WeekdayAbbrev(calendar.Weekday(year, month, day)))
}

// DayNumber extracts the day of month from a day label.
func DayNumber(label string) (int, error) {
	prefix, _, _ := strings.Cut(label, "-")
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 1 || n > 31 {
		return 0, fmt.Errorf("invalid day label: %q", label)
	}
	return n, nil
}

// ValidLabel checks that s is a well formed slot of (year, month).
func ValidLabel(s Slot, year, month int) error {
	day, err := DayNumber(s.Day)
	if err != nil {
		return err
	}
	if day > calendar.DaysInMonth(year, month) || s.Day != DayLabel(year, month, day) {
		return fmt.Errorf("day label %q does not belong to %s", s.Day, calendar.MonthLabel(year, month))
	}
	if _, _, err := cursor.ParseHour(s.Hour); err != nil {
		return err
	}
	return nil
}

// Compare orders slots chronologically: by day number, then by time of day.
// Malformed labels fall back to string order so sorting stays total.
func Compare(a, b Slot) int {
	if c := compareDay(a.Day, b.Day); c != 0 {
		return c
	}
	return compareHour(a.Hour, b.Hour)
}

// Less reports whether a sorts before b.
func Less(a, b Slot) bool {
	return Compare(a, b) < 0
}

func compareDay(a, b string) int {
	da, errA := DayNumber(a)
	db, errB := DayNumber(b)
	if errA == nil && errB == nil {
		return cmpInt(da, db)
	}
	return strings.Compare(a, b)
}

func compareHour(a, b string) int {
	ha, ma, errA := cursor.ParseHour(a)
	hb, mb, errB := cursor.ParseHour(b)
	if errA == nil && errB == nil {
		return cmpInt(ha*60+ma, hb*60+mb)
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Sort orders slots in place.
func Sort(list []Slot) {
	sort.SliceStable(list, func(i, j int) bool { return Less(list[i], list[j]) })
}
