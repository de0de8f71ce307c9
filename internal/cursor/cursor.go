// Package cursor provides Cursor, an immutable point in time with minute
// precision, and the rollover-aware moves the timetable needs.
package cursor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gymschedule/internal/calendar"
)

// Cursor is a (year, month, day, hour, minute) point in time.
// Values are only produced by New, FromTime and the methods below, all of which
// keep Day within the days of (Year, Month).
type Cursor struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// New validates the fields and returns a Cursor.
func New(year, month, day, hour, minute int) (Cursor, error) {
	c := Cursor{Year: year, Month: month, Day: day, Hour: hour, Minute: minute}
	if err := c.Validate(); err != nil {
		return Cursor{}, err
	}
	return c, nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(year, month, day, hour, minute int) Cursor {
	c, err := New(year, month, day, hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// FromTime converts t, in its own location, to a Cursor.
func FromTime(t time.Time) Cursor {
	return Cursor{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}
}

// Validate checks every field range.
func (c Cursor) Validate() error {
	switch {
	case c.Year < 1:
		return fmt.Errorf("invalid year: %d", c.Year)
	case c.Month < 1 || c.Month > 12:
		return fmt.Errorf("invalid month: %d", c.Month)
	case c.Day < 1 || c.Day > calendar.DaysInMonth(c.Year, c.Month):
		return fmt.Errorf("invalid day %d for %s", c.Day, calendar.MonthLabel(c.Year, c.Month))
	case c.Hour < 0 || c.Hour > 23:
		return fmt.Errorf("invalid hour: %d", c.Hour)
	case c.Minute < 0 || c.Minute > 59:
		return fmt.Errorf("invalid minute: %d", c.Minute)
	}
	return nil
}

// Weekday returns the weekday of the cursor's date, Sunday = 0.
func (c Cursor) Weekday() int {
	return calendar.Weekday(c.Year, c.Month, c.Day)
}

// MinuteOfDay returns hour*60 + minute.
func (c Cursor) MinuteOfDay() int {
	return c.Hour*60 + c.Minute
}

// At returns the same date at hour:minute.
func (c Cursor) At(hour, minute int) Cursor {
	c.Hour = hour
	c.Minute = minute
	return c
}

// NextDay returns midnight of the following day, rolling over months and years.
func (c Cursor) NextDay() Cursor {
	c.Hour, c.Minute = 0, 0
	if c.Day < calendar.DaysInMonth(c.Year, c.Month) {
		c.Day++
		return c
	}
	c.Year, c.Month = calendar.NextMonth(c.Year, c.Month)
	c.Day = 1
	return c
}

// FutureDay moves to the target day of month keeping the time of day.
// A target before the current day means next month. The result is clamped to
// the last day of its month, so out-of-range targets never fail.
func (c Cursor) FutureDay(target int) Cursor {
	if target < c.Day {
		c.Year, c.Month = calendar.NextMonth(c.Year, c.Month)
	}
	if last := calendar.DaysInMonth(c.Year, c.Month); target > last {
		target = last
	}
	if target < 1 {
		target = 1
	}
	c.Day = target
	return c
}

// Target describes a future time. Zero values mean "not given".
type Target struct {
	Day  int
	Hour string
}

// FutureTime moves to the next occurrence of target.
// With a day, FutureDay is applied first. With only an hour that is earlier
// than the cursor's time of day, the move goes to the next calendar day.
func (c Cursor) FutureTime(target Target) (Cursor, error) {
	if target.Day > 0 {
		c = c.FutureDay(target.Day)
	}
	if target.Hour == "" {
		return c, nil
	}

	hour, minute, err := ParseHour(target.Hour)
	if err != nil {
		return Cursor{}, err
	}
	if target.Day == 0 && hour*60+minute < c.MinuteOfDay() {
		c = c.NextDay()
	}
	return c.At(hour, minute), nil
}

// OneMinuteEarlier steps back one minute, borrowing from hour, day, month and year.
func (c Cursor) OneMinuteEarlier() Cursor {
	if c.Minute > 0 {
		c.Minute--
		return c
	}
	c.Minute = 59
	if c.Hour > 0 {
		c.Hour--
		return c
	}
	c.Hour = 23
	if c.Day > 1 {
		c.Day--
		return c
	}
	c.Year, c.Month = calendar.PrevMonth(c.Year, c.Month)
	c.Day = calendar.DaysInMonth(c.Year, c.Month)
	return c
}

// Compare returns -1, 0 or 1 as c is before, equal to or after other.
func (c Cursor) Compare(other Cursor) int {
	a := [5]int{c.Year, c.Month, c.Day, c.Hour, c.Minute}
	b := [5]int{other.Year, other.Month, other.Day, other.Hour, other.Minute}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Before reports whether c is strictly before other.
func (c Cursor) Before(other Cursor) bool {
	return c.Compare(other) < 0
}

func (c Cursor) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", c.Year, c.Month, c.Day, c.Hour, c.Minute)
}

// ParseHour parses an "H:MM" or "HH:MM" label.
func ParseHour(label string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("invalid time format: %q", label)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", label)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", label)
	}
	return hour, minute, nil
}

// FormatHour renders hour and minute as a zero-padded "HH:MM" label.
func FormatHour(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// NormalizeHour parses label and renders it back zero-padded, so "8:00" becomes "08:00".
func NormalizeHour(label string) (string, error) {
	h, m, err := ParseHour(label)
	if err != nil {
		return "", err
	}
	return FormatHour(h, m), nil
}
