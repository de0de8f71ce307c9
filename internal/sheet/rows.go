// Package sheet converts between the tabular layout shared by every sheet
// backend and the timetable's members and reservations.
//
// The member sheet is named "members" and has the columns of MemberHeader.
// Each month has a sheet named by its month label, e.g. "2020-11", with one
// reservation per row in the columns of ReservationHeader.
package sheet

import (
	"fmt"
	"strings"

	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/slots"
)

const MembersSheet = "members"

var (
	MemberHeader      = []string{"id", "name", "training_hour", "email", "notes"}
	ReservationHeader = []string{"day", "hour", "member"}
)

// RowError reports a raw row that cannot be turned into an entity.
// Row is 1-based and counts the header.
type RowError struct {
	Sheet  string
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("sheet %s, row %d: %s", e.Sheet, e.Row, e.Reason)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseMembers reads the member sheet. The first row is the header; blank
// rows are skipped.
func ParseMembers(rows [][]string, sched *slots.Schedule) ([]model.Member, error) {
	var members []model.Member
	seen := make(map[string]int)

	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		n := i + 1
		m := model.Member{
			ID:    cell(row, 0),
			Name:  cell(row, 1),
			Email: cell(row, 3),
			Notes: cell(row, 4),
		}
		if m.ID == "" {
			return nil, &RowError{Sheet: MembersSheet, Row: n, Reason: "empty member id"}
		}
		if prev, ok := seen[m.ID]; ok {
			return nil, &RowError{Sheet: MembersSheet, Row: n, Reason: fmt.Sprintf("member id %q already used in row %d", m.ID, prev)}
		}
		seen[m.ID] = n

		hour, err := cursor.NormalizeHour(cell(row, 2))
		if err != nil || !sched.IsTrainingHour(hour) {
			return nil, &RowError{Sheet: MembersSheet, Row: n, Reason: fmt.Sprintf("unknown training hour %q", cell(row, 2))}
		}
		m.TrainingHour = hour
		members = append(members, m)
	}
	return members, nil
}

// FormatMembers renders the member sheet including its header.
func FormatMembers(members []model.Member) [][]string {
	out := make([][]string, 0, len(members)+1)
	out = append(out, MemberHeader)
	for _, m := range members {
		out = append(out, []string{m.ID, m.Name, m.TrainingHour, m.Email, m.Notes})
	}
	return out
}

// ParseReservations reads a month sheet of (year, month).
func ParseReservations(rows [][]string, sched *slots.Schedule, year, month int) ([]model.Reservation, error) {
	var out []model.Reservation
	name := MonthSheet(year, month)

	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		n := i + 1

		hour, err := cursor.NormalizeHour(cell(row, 1))
		if err != nil {
			return nil, &RowError{Sheet: name, Row: n, Reason: err.Error()}
		}
		r := model.Reservation{
			Member: cell(row, 2),
			Slot:   slots.Slot{Day: cell(row, 0), Hour: hour},
		}
		if r.Member == "" {
			return nil, &RowError{Sheet: name, Row: n, Reason: "empty member id"}
		}
		if err := slots.ValidLabel(r.Slot, year, month); err != nil {
			return nil, &RowError{Sheet: name, Row: n, Reason: err.Error()}
		}
		if !sched.IsTrainingHour(hour) {
			return nil, &RowError{Sheet: name, Row: n, Reason: fmt.Sprintf("%s is not a training hour", hour)}
		}
		out = append(out, r)
	}
	return out, nil
}

// FormatReservations renders a month sheet including its header.
func FormatReservations(rows []model.Reservation) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, ReservationHeader)
	for _, r := range rows {
		out = append(out, []string{r.Slot.Day, r.Slot.Hour, r.Member})
	}
	return out
}
