// Package rearrange turns a member's "add at day X / remove at day Y"
// instructions into per-month change-sets and applies them to reservation rows.
package rearrange

import (
	"strconv"
	"strings"

	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/slots"
)

// DayHour is one day number paired with the hour it should be booked at.
type DayHour struct {
	Day  int
	Hour string
}

// ParseAdd folds an alternating sequence of day numbers and hour labels, e.g.
// ["1", "3", "08:00", "5", "17:00"], into one DayHour per day. Every run of days
// takes the hour that follows it. The sequence must start with a day, must
// not hold two hours in a row and must end with an hour. Hours must be
// training hours of sched.
func ParseAdd(tokens []string, sched *slots.Schedule) ([]DayHour, error) {
	var (
		result  []DayHour
		pending []int
	)

	for i, raw := range tokens {
		tok := strings.TrimSpace(raw)

		if strings.Contains(tok, ":") {
			if len(pending) == 0 {
				reason := "two hours in a row"
				if i == 0 {
					reason = "starts with an hour instead of a day"
				}
				return nil, &model.SyntaxError{Position: i, Token: raw, Reason: reason}
			}
			hour, err := cursor.NormalizeHour(tok)
			if err != nil {
				return nil, &model.SyntaxError{Position: i, Token: raw, Reason: err.Error()}
			}
			if !sched.IsTrainingHour(hour) {
				return nil, &model.SyntaxError{Position: i, Token: raw, Reason: "not a training hour"}
			}
			for _, day := range pending {
				result = append(result, DayHour{Day: day, Hour: hour})
			}
			pending = pending[:0]
			continue
		}

		day, err := strconv.Atoi(tok)
		if err != nil || day < 1 || day > 31 {
			return nil, &model.SyntaxError{Position: i, Token: raw, Reason: "not a day number"}
		}
		pending = append(pending, day)
	}

	if len(pending) > 0 {
		return nil, &model.SyntaxError{Position: len(tokens), Reason: "missing hour after the last days"}
	}
	return result, nil
}
