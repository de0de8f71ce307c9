package main

import (
	"errors"
	"fmt"

	"gymschedule/internal/backup"
	"gymschedule/internal/model"
	"gymschedule/internal/service"
	"gymschedule/internal/sheet"
)

// describeError renders engine errors for the administrator.
func describeError(err error) string {
	var (
		syntaxErr *model.SyntaxError
		dupDay    *model.DuplicateDayError
		badDay    *model.InvalidDayError
		notFound  *model.MemberNotFoundError
		missing   *model.SheetMissingError
		slotCap   *model.SlotCapacityError
		hourCap   *model.TrainingHourCapacityError
		dupRes    *model.DuplicateReservationError
		rowErr    *sheet.RowError
	)

	switch {
	case errors.As(err, &slotCap):
		return fmt.Sprintf("%s at %s would have %d people, the limit is %d; nothing was changed",
			slotCap.Day, slotCap.Hour, slotCap.Count, slotCap.Capacity)
	case errors.As(err, &hourCap):
		return fmt.Sprintf("the %s group already has %d of %d members; pick another training hour",
			hourCap.Hour, hourCap.Count, hourCap.Capacity)
	case errors.As(err, &dupRes):
		return fmt.Sprintf("%s is already booked on %s at %s", dupRes.Member, dupRes.Day, dupRes.Hour)
	case errors.As(err, &syntaxErr):
		if syntaxErr.Token == "" {
			return fmt.Sprintf("cannot read the days to add: %s", syntaxErr.Reason)
		}
		return fmt.Sprintf("cannot read the days to add at %q: %s", syntaxErr.Token, syntaxErr.Reason)
	case errors.As(err, &dupDay):
		return fmt.Sprintf("day %d is listed twice in the days to %s", dupDay.Day, dupDay.Kind)
	case errors.As(err, &badDay):
		return fmt.Sprintf("day %d cannot be used in %s: %s", badDay.Day, badDay.Month, badDay.Reason)
	case errors.As(err, &notFound):
		return fmt.Sprintf("there is no member with id %q", notFound.ID)
	case errors.As(err, &missing):
		return fmt.Sprintf("the timetable for %s has not been created yet; run new-month %s first", missing.Month, missing.Month)
	case errors.As(err, &rowErr):
		return fmt.Sprintf("bad data in sheet %s, row %d: %s", rowErr.Sheet, rowErr.Row, rowErr.Reason)
	case errors.Is(err, model.ErrEmptyRearrangement):
		return "nothing to rearrange: give --add and/or --remove"
	case errors.Is(err, service.ErrMonthExists):
		return err.Error()
	case errors.Is(err, service.ErrUndoUnavailable):
		return "undo is not available: enable backup in the configuration"
	case errors.Is(err, backup.ErrJournalEmpty):
		return "there is nothing to undo"
	default:
		return err.Error()
	}
}
