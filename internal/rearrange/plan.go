package rearrange

import (
	"gymschedule/internal/calendar"
	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/slots"
)

// Request is a rearrangement as typed by the administrator.
type Request struct {
	Member string
	Add    []string
	Remove []int
}

// ChangeSet is the part of a rearrangement that touches one month, in that
// month's slot labels.
type ChangeSet struct {
	Member          string
	Year            int
	Month           int
	SlotsToAdd      []slots.Slot
	DaysToRearrange []string
}

// Empty reports whether the change-set leaves its month untouched.
func (cs ChangeSet) Empty() bool {
	return len(cs.SlotsToAdd) == 0 && len(cs.DaysToRearrange) == 0
}

// MonthLabel names the month the change-set belongs to.
func (cs ChangeSet) MonthLabel() string {
	return calendar.MonthLabel(cs.Year, cs.Month)
}

// Plan holds the change-sets for the current and the following month.
type Plan struct {
	This ChangeSet
	Next ChangeSet
}

// ChangeSets returns the non-empty change-sets, current month first.
func (p Plan) ChangeSets() []ChangeSet {
	var out []ChangeSet
	for _, cs := range []ChangeSet{p.This, p.Next} {
		if !cs.Empty() {
			out = append(out, cs)
		}
	}
	return out
}

// Validate checks the request shape without looking at any month.
func (r Request) Validate() error {
	if len(r.Add) == 0 && len(r.Remove) == 0 {
		return model.ErrEmptyRearrangement
	}
	seen := make(map[int]bool, len(r.Remove))
	for _, day := range r.Remove {
		if seen[day] {
			return &model.DuplicateDayError{Kind: "remove", Day: day}
		}
		seen[day] = true
	}
	return nil
}

// NewPlan parses and validates req and splits it by month around now: days
// before today belong to next month, the others to this month.
func NewPlan(req Request, now cursor.Cursor, sched *slots.Schedule) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adds, err := ParseAdd(req.Add, sched)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(adds))
	for _, a := range adds {
		if seen[a.Day] {
			return nil, &model.DuplicateDayError{Kind: "add", Day: a.Day}
		}
		seen[a.Day] = true
	}

	nextYear, nextMonth := calendar.NextMonth(now.Year, now.Month)
	plan := &Plan{
		This: ChangeSet{Member: req.Member, Year: now.Year, Month: now.Month},
		Next: ChangeSet{Member: req.Member, Year: nextYear, Month: nextMonth},
	}
	target := func(day int) *ChangeSet {
		if day < now.Day {
			return &plan.Next
		}
		return &plan.This
	}

	for _, a := range adds {
		cs := target(a.Day)
		if err := checkDay(cs, a.Day); err != nil {
			return nil, err
		}
		if sched.IsClosed(cs.Year, cs.Month, a.Day) {
			return nil, &model.InvalidDayError{Day: a.Day, Month: cs.MonthLabel(), Reason: "the gym is closed that day"}
		}
		cs.SlotsToAdd = append(cs.SlotsToAdd, slots.Slot{Day: slots.DayLabel(cs.Year, cs.Month, a.Day), Hour: a.Hour})
	}

	for _, day := range req.Remove {
		cs := target(day)
		if err := checkDay(cs, day); err != nil {
			return nil, err
		}
		cs.DaysToRearrange = append(cs.DaysToRearrange, slots.DayLabel(cs.Year, cs.Month, day))
	}

	return plan, nil
}

func checkDay(cs *ChangeSet, day int) error {
	if day < 1 || day > calendar.DaysInMonth(cs.Year, cs.Month) {
		return &model.InvalidDayError{Day: day, Month: cs.MonthLabel(), Reason: "no such day"}
	}
	return nil
}

// Apply drops the member's rows on the rearranged days, adds the new slots
// and returns the month's rows re-sorted. rows is not modified.
func Apply(rows []model.Reservation, cs ChangeSet) []model.Reservation {
	drop := make(map[string]bool, len(cs.DaysToRearrange))
	for _, d := range cs.DaysToRearrange {
		drop[d] = true
	}

	out := make([]model.Reservation, 0, len(rows)+len(cs.SlotsToAdd))
	for _, r := range rows {
		if r.Member == cs.Member && drop[r.Slot.Day] {
			continue
		}
		out = append(out, r)
	}
	for _, s := range cs.SlotsToAdd {
		out = append(out, model.Reservation{Member: cs.Member, Slot: s})
	}

	model.SortReservations(out)
	return out
}
