// Package calendar holds the Gregorian calendar arithmetic the timetable is built on.
// Weekdays are numbered from Sunday = 0, months from January = 1.
package calendar

import (
	"fmt"
	"time"
)

var weekdayAbbrevs = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year, month int) int {
	switch time.Month(month) {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// FirstWeekday returns the weekday of the first day of the month.
func FirstWeekday(year, month int) int {
	return Weekday(year, month, 1)
}

// Weekday returns the weekday of the given date.
func Weekday(year, month, day int) int {
	return int(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday())
}

// NextMonth returns the month following (year, month).
func NextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// PrevMonth returns the month preceding (year, month).
func PrevMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// WeekdayAbbrev returns the three-letter English abbreviation used in day labels.
func WeekdayAbbrev(weekday int) string {
	return weekdayAbbrevs[((weekday%7)+7)%7]
}

// MonthLabel names a month sheet, e.g. "2020-11".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParseMonthLabel is the inverse of MonthLabel.
func ParseMonthLabel(label string) (year, month int, err error) {
	t, err := time.Parse("2006-01", label)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month label %q", label)
	}
	return t.Year(), int(t.Month()), nil
}
