package sheet

import "gymschedule/internal/calendar"

// MonthSheet names the reservation sheet of a month.
func MonthSheet(year, month int) string {
	return calendar.MonthLabel(year, month)
}
