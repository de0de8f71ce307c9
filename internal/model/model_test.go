package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"gymschedule/internal/slots"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ben", "ben"},
		{"David Fernández", "david_fernandez"},
		{"  João  ", "joao"},
		{"Anne-Marie O'Neil", "annemarie_oneil"},
		{"R2 D2", "r_d"},
		{"Zoë Ñúñez", "zoe_nunez"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNewMemberID(t *testing.T) {
	taken := map[string]bool{}
	isTaken := func(id string) bool { return taken[id] }

	first := NewMemberID("Ben", isTaken)
	assert.Equal(t, "ben", first)
	taken[first] = true

	second := NewMemberID("Ben", isTaken)
	assert.Equal(t, "ben1", second)
	taken[second] = true

	assert.Equal(t, "ben2", NewMemberID("BEN", isTaken))
	assert.Equal(t, "member", NewMemberID("123", isTaken))
}

func TestSortReservations(t *testing.T) {
	rows := []Reservation{
		{Member: "zoe", Slot: slots.Slot{Day: "10-Tue", Hour: "08:00"}},
		{Member: "ben", Slot: slots.Slot{Day: "10-Tue", Hour: "08:00"}},
		{Member: "ben", Slot: slots.Slot{Day: "02-Mon", Hour: "19:00"}},
		{Member: "ann", Slot: slots.Slot{Day: "10-Tue", Hour: "06:00"}},
	}
	SortReservations(rows)

	assert.Equal(t, []Reservation{
		{Member: "ben", Slot: slots.Slot{Day: "02-Mon", Hour: "19:00"}},
		{Member: "ann", Slot: slots.Slot{Day: "10-Tue", Hour: "06:00"}},
		{Member: "ben", Slot: slots.Slot{Day: "10-Tue", Hour: "08:00"}},
		{Member: "zoe", Slot: slots.Slot{Day: "10-Tue", Hour: "08:00"}},
	}, rows)

	assert.Equal(t, []slots.Slot{{Day: "02-Mon", Hour: "19:00"}, {Day: "10-Tue", Hour: "08:00"}}, MemberSlots(rows, "ben"))
}

func TestErrorsUnwrap(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{&SyntaxError{Position: 0, Token: "08:00", Reason: "hour before any day"}, ErrInvalidTimeSlotSyntax},
		{&DuplicateDayError{Kind: "add", Day: 3}, ErrDuplicateDay},
		{&InvalidDayError{Day: 31, Month: "2020-11", Reason: "no such day"}, ErrInvalidDay},
		{&MemberNotFoundError{ID: "ghost"}, ErrMemberNotFound},
		{&SheetMissingError{Month: "2020-12"}, ErrSheetMissing},
		{&SlotCapacityError{Day: "25-Wed", Hour: "17:00", Count: 11, Capacity: 10}, ErrSlotCapacityExceeded},
		{&TrainingHourCapacityError{Hour: "17:00", Count: 11, Capacity: 10}, ErrTrainingHourCapacityExceeded},
		{&DuplicateReservationError{Member: "ben", Day: "25-Wed", Hour: "17:00"}, ErrDuplicateReservation},
	}

	for _, tt := range tests {
		t.Run(tt.sentinel.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("command: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.NotEmpty(t, tt.err.Error())
		})
	}

	var capErr *SlotCapacityError
	assert.True(t, errors.As(fmt.Errorf("x: %w", &SlotCapacityError{Day: "25-Wed", Hour: "17:00", Count: 11, Capacity: 10}), &capErr))
	assert.Equal(t, 11, capErr.Count)
}
