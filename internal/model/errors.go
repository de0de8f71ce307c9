// Package model defines the timetable's entities and the failures the engine reports.
package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTimeSlotSyntax        = errors.New("invalid time slot syntax")
	ErrEmptyRearrangement           = errors.New("nothing to rearrange")
	ErrDuplicateDay                 = errors.New("duplicate day in input")
	ErrInvalidDay                   = errors.New("invalid day")
	ErrMemberNotFound               = errors.New("member not found")
	ErrSheetMissing                 = errors.New("sheet missing for month")
	ErrSlotCapacityExceeded         = errors.New("slot capacity exceeded")
	ErrTrainingHourCapacityExceeded = errors.New("training hour capacity exceeded")
	ErrDuplicateReservation         = errors.New("duplicate reservation")
)

// SyntaxError reports a malformed add-instruction sequence.
type SyntaxError struct {
	Position int
	Token    string
	Reason   string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid time slot syntax at position %d: %s", e.Position, e.Reason)
	}
	return fmt.Sprintf("invalid time slot syntax at %q (position %d): %s", e.Token, e.Position, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return ErrInvalidTimeSlotSyntax }

// DuplicateDayError reports a day repeated within the add or the remove list.
type DuplicateDayError struct {
	Kind string // "add" or "remove"
	Day  int
}

func (e *DuplicateDayError) Error() string {
	return fmt.Sprintf("day %d appears more than once in %s list", e.Day, e.Kind)
}

func (e *DuplicateDayError) Unwrap() error { return ErrDuplicateDay }

// InvalidDayError reports a day that does not exist or has no slots in its month.
type InvalidDayError struct {
	Day    int
	Month  string
	Reason string
}

func (e *InvalidDayError) Error() string {
	return fmt.Sprintf("day %d of %s: %s", e.Day, e.Month, e.Reason)
}

func (e *InvalidDayError) Unwrap() error { return ErrInvalidDay }

// MemberNotFoundError reports an unknown member id.
type MemberNotFoundError struct {
	ID string
}

func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("member %q not found", e.ID)
}

func (e *MemberNotFoundError) Unwrap() error { return ErrMemberNotFound }

// SheetMissingError reports a month whose reservation sheet was never created.
type SheetMissingError struct {
	Month string
}

func (e *SheetMissingError) Error() string {
	return fmt.Sprintf("no reservation sheet for %s", e.Month)
}

func (e *SheetMissingError) Unwrap() error { return ErrSheetMissing }

// SlotCapacityError reports a slot holding more reservations than allowed.
type SlotCapacityError struct {
	Day      string
	Hour     string
	Count    int
	Capacity int
}

func (e *SlotCapacityError) Error() string {
	return fmt.Sprintf("slot %s %s holds %d reservations, capacity is %d", e.Day, e.Hour, e.Count, e.Capacity)
}

func (e *SlotCapacityError) Unwrap() error { return ErrSlotCapacityExceeded }

// TrainingHourCapacityError reports a training hour with too many members.
type TrainingHourCapacityError struct {
	Hour     string
	Count    int
	Capacity int
}

func (e *TrainingHourCapacityError) Error() string {
	return fmt.Sprintf("training hour %s has %d members, capacity is %d", e.Hour, e.Count, e.Capacity)
}

func (e *TrainingHourCapacityError) Unwrap() error { return ErrTrainingHourCapacityExceeded }

// DuplicateReservationError reports a member booked twice into the same slot.
type DuplicateReservationError struct {
	Member string
	Day    string
	Hour   string
}

func (e *DuplicateReservationError) Error() string {
	return fmt.Sprintf("member %q already holds %s %s", e.Member, e.Day, e.Hour)
}

func (e *DuplicateReservationError) Unwrap() error { return ErrDuplicateReservation }
