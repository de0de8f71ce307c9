package slots

import (
	"errors"
	"fmt"

	"gymschedule/internal/calendar"
	"gymschedule/internal/cursor"
)

// DefaultTrainingHours are the hours offered every open day.
var DefaultTrainingHours = []string{"06:00", "07:00", "08:00", "09:30", "11:00", "12:00", "17:00", "18:00", "19:00"}

// DefaultClosedWeekday is Sunday.
const DefaultClosedWeekday = 0

// maxDaySteps bounds the search for the next training hour.
const maxDaySteps = 366

// ErrNoTrainingHour is returned when no training hour is reachable, which
// only happens with a schedule that has no hours or closes every day.
var ErrNoTrainingHour = errors.New("no training hour within a year")

type hourOfDay struct {
	label  string
	hour   int
	minute int
}

func (h hourOfDay) minuteOfDay() int { return h.hour*60 + h.minute }

// Schedule is the weekly pattern: the ordered training hours and the closed weekday.
type Schedule struct {
	hours  []hourOfDay
	rank   map[string]int
	closed int
}

// NewSchedule validates hours (well formed, strictly ascending, non-empty) and
// closedWeekday (0..6, Sunday = 0).
func NewSchedule(hours []string, closedWeekday int) (*Schedule, error) {
	if len(hours) == 0 {
		return nil, fmt.Errorf("schedule: no training hours configured")
	}
	if closedWeekday < 0 || closedWeekday > 6 {
		return nil, fmt.Errorf("schedule: invalid closed weekday %d", closedWeekday)
	}

	s := &Schedule{rank: make(map[string]int, len(hours)), closed: closedWeekday}
	for i, label := range hours {
		h, m, err := cursor.ParseHour(label)
		if err != nil {
			return nil, fmt.Errorf("schedule: %w", err)
		}
		hod := hourOfDay{label: cursor.FormatHour(h, m), hour: h, minute: m}
		if i > 0 && hod.minuteOfDay() <= s.hours[i-1].minuteOfDay() {
			return nil, fmt.Errorf("schedule: training hours must be strictly ascending, %s after %s", hod.label, s.hours[i-1].label)
		}
		s.hours = append(s.hours, hod)
		s.rank[hod.label] = i
	}
	return s, nil
}

// DefaultSchedule returns the reference schedule.
func DefaultSchedule() *Schedule {
	s, err := NewSchedule(DefaultTrainingHours, DefaultClosedWeekday)
	if err != nil {
		panic(err)
	}
	return s
}

// Hours returns the training hour labels in order.
func (s *Schedule) Hours() []string {
	out := make([]string, len(s.hours))
	for i, h := range s.hours {
		out[i] = h.label
	}
	return out
}

// ClosedWeekday returns the weekday without slots.
func (s *Schedule) ClosedWeekday() int {
	return s.closed
}

// IsTrainingHour reports whether label is one of the training hours.
func (s *Schedule) IsTrainingHour(label string) bool {
	_, ok := s.rank[label]
	return ok
}

// HourRank returns the position of label among the training hours.
func (s *Schedule) HourRank(label string) (int, bool) {
	r, ok := s.rank[label]
	return r, ok
}

// IsClosed reports whether the date falls on the closed weekday.
func (s *Schedule) IsClosed(year, month, day int) bool {
	return calendar.Weekday(year, month, day) == s.closed
}

// NextTrainingHour returns c itself when it sits exactly on a training hour of an
// open day, otherwise the first training hour after it.
func (s *Schedule) NextTrainingHour(c cursor.Cursor) (cursor.Cursor, error) {
	cur := c
	for step := 0; step < maxDaySteps; step++ {
		if !s.IsClosed(cur.Year, cur.Month, cur.Day) {
			for _, h := range s.hours {
				if h.minuteOfDay() >= cur.MinuteOfDay() {
					return cur.At(h.hour, h.minute), nil
				}
			}
		}
		cur = cur.NextDay()
	}
	return cursor.Cursor{}, fmt.Errorf("from %s: %w", c, ErrNoTrainingHour)
}

// ToSlot derives the slot label pair of c.
func (s *Schedule) ToSlot(c cursor.Cursor) Slot {
	return Slot{
		Day:  DayLabel(c.Year, c.Month, c.Day),
		Hour: cursor.FormatHour(c.Hour, c.Minute),
	}
}
