package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gymschedule/internal/backup"
	"gymschedule/internal/calendar"
	"gymschedule/internal/cursor"
	"gymschedule/internal/metrics"
	"gymschedule/internal/model"
	"gymschedule/internal/rearrange"
	"gymschedule/internal/slots"
)

const (
	CommandAddMember    = "add-member"
	CommandRemoveMember = "remove-member"
	CommandRearrange    = "rearrange"
	CommandNewMonth     = "new-month"
	CommandShow         = "show"
	CommandUndo         = "undo"
)

// NewMember is the input of AddMember.
type NewMember struct {
	Name         string
	TrainingHour string
	Email        string
	Notes        string
}

// AddResult reports what AddMember booked.
type AddResult struct {
	Member model.Member
	// Booked and Skipped are keyed by month label.
	Booked  map[string][]slots.Slot
	Skipped map[string][]string
}

// AddMember registers a member at a training hour and books them into every
// remaining slot at that hour in the current month and, when its sheet
// exists, the next one. Days already full at that hour are skipped.
func (s *Service) AddMember(ctx context.Context, in NewMember) (res *AddResult, err error) {
	defer func() { metrics.ObserveCommand(CommandAddMember, err) }()

	hour, err := cursor.NormalizeHour(in.TrainingHour)
	if err != nil || !s.schedule.IsTrainingHour(hour) {
		return nil, &model.SyntaxError{Token: in.TrainingHour, Reason: "not a training hour"}
	}

	now := s.clock.Now()

	members, err := s.members.LoadMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	sheets, err := s.trackedMonths(ctx, now, true)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceMembers(ctx, members); err != nil {
		return nil, err
	}
	taken := func(id string) bool {
		_, ok := model.FindMember(members, id)
		return ok
	}
	m := model.Member{
		ID:           model.NewMemberID(in.Name, taken),
		Name:         in.Name,
		TrainingHour: hour,
		Email:        in.Email,
		Notes:        in.Notes,
	}
	if err := s.store.InsertMemberIfRoomAvailable(ctx, m); err != nil {
		return nil, err
	}
	roster := append(append(make([]model.Member, 0, len(members)+1), members...), m)

	res = &AddResult{
		Member:  m,
		Booked:  make(map[string][]slots.Slot),
		Skipped: make(map[string][]string),
	}
	created := 0
	for i, sh := range sheets {
		var candidates []slots.Slot
		if i == 0 {
			candidates = s.schedule.FutureSlotsAtHour(now, hour)
		} else {
			candidates = slotsAtHour(s.schedule.MonthSlots(sh.year, sh.month), hour)
		}

		if err := s.store.ReplaceReservations(ctx, sh.loaded); err != nil {
			return nil, fmt.Errorf("%s: %w", sh.label(), err)
		}
		rows, skipped, err := s.store.AssignNewMemberToFutureSlots(ctx, m, candidates)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sh.label(), err)
		}
		sh.rows = rows
		res.Booked[sh.label()] = model.MemberSlots(rows, m.ID)
		if len(skipped) > 0 {
			res.Skipped[sh.label()] = skipped
		}
		created += len(res.Booked[sh.label()])
	}

	if err := s.persist(ctx, CommandAddMember, members, roster, sheets); err != nil {
		return nil, err
	}

	metrics.AddReservationsCreated(CommandAddMember, created)
	s.logger.Info().
		Str("member", m.ID).
		Str("training_hour", hour).
		Int("booked", created).
		Msg("Member added")
	return res, nil
}

// RemoveMember deletes a member and all of their reservations in every
// tracked month.
func (s *Service) RemoveMember(ctx context.Context, id string) (err error) {
	defer func() { metrics.ObserveCommand(CommandRemoveMember, err) }()

	now := s.clock.Now()

	members, err := s.members.LoadMembers(ctx)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	if _, ok := model.FindMember(members, id); !ok {
		return &model.MemberNotFoundError{ID: id}
	}
	sheets, err := s.trackedMonths(ctx, now, false)
	if err != nil {
		return err
	}

	remaining := make([]model.Member, 0, len(members))
	for _, m := range members {
		if m.ID != id {
			remaining = append(remaining, m)
		}
	}
	if err := s.store.ReplaceMembers(ctx, remaining); err != nil {
		return err
	}

	removed := 0
	for _, sh := range sheets {
		if err := s.store.ReplaceReservations(ctx, sh.loaded); err != nil {
			return fmt.Errorf("%s: %w", sh.label(), err)
		}
		rows, err := s.store.RemoveMemberReservations(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", sh.label(), err)
		}
		sh.rows = nonNil(rows)
		removed += len(sh.loaded) - len(rows)
	}

	if err := s.persist(ctx, CommandRemoveMember, members, remaining, sheets); err != nil {
		return err
	}

	s.logger.Info().Str("member", id).Int("reservations_removed", removed).Msg("Member removed")
	return nil
}

// Rearrange moves a member's reservations as described by req. Both affected
// months are checked before either is written.
func (s *Service) Rearrange(ctx context.Context, req rearrange.Request) (plan *rearrange.Plan, err error) {
	defer func() { metrics.ObserveCommand(CommandRearrange, err) }()

	now := s.clock.Now()
	plan, err = rearrange.NewPlan(req, now, s.schedule)
	if err != nil {
		return nil, err
	}

	members, err := s.members.LoadMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if _, ok := model.FindMember(members, req.Member); !ok {
		return nil, &model.MemberNotFoundError{ID: req.Member}
	}

	changes := plan.ChangeSets()
	sheets := make([]*monthSheet, 0, len(changes))
	for _, cs := range changes {
		sh, err := s.loadMonth(ctx, cs.Year, cs.Month, false)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sh)
	}

	added := 0
	for i, cs := range changes {
		sh := sheets[i]
		rows := rearrange.Apply(sh.loaded, cs)
		if err := s.store.ReplaceReservations(ctx, rows); err != nil {
			return nil, fmt.Errorf("%s: %w", sh.label(), err)
		}
		sh.rows = rows
		added += len(cs.SlotsToAdd)
	}

	if err := s.persist(ctx, CommandRearrange, nil, nil, sheets); err != nil {
		return nil, err
	}

	metrics.AddReservationsCreated(CommandRearrange, added)
	s.logger.Info().
		Str("member", req.Member).
		Int("months", len(sheets)).
		Int("added", added).
		Msg("Reservations rearranged")
	return plan, nil
}

// CreateMonth creates the sheet of a new month with every member booked at
// their training hour on every open day.
func (s *Service) CreateMonth(ctx context.Context, year, month int) (rows []model.Reservation, err error) {
	defer func() { metrics.ObserveCommand(CommandNewMonth, err) }()

	label := calendar.MonthLabel(year, month)
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	_, err = s.months.LoadMonth(ctx, year, month)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", label, ErrMonthExists)
	case !errors.Is(err, model.ErrSheetMissing):
		return nil, fmt.Errorf("load %s: %w", label, err)
	}

	members, err := s.members.LoadMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if err := s.store.ReplaceMembers(ctx, members); err != nil {
		return nil, err
	}

	for _, slot := range s.schedule.MonthSlots(year, month) {
		for _, m := range members {
			if m.TrainingHour == slot.Hour {
				rows = append(rows, model.Reservation{Member: m.ID, Slot: slot})
			}
		}
	}
	if err := s.store.ReplaceReservations(ctx, rows); err != nil {
		return nil, err
	}
	if rows, err = s.store.Reservations(ctx); err != nil {
		return nil, err
	}
	rows = nonNil(rows)

	if s.journal != nil {
		if _, err := s.journal.Record(ctx, CommandNewMonth, map[string]any{label: []model.Reservation{}}); err != nil {
			return nil, fmt.Errorf("backup before %s: %w", CommandNewMonth, err)
		}
	}
	if err := s.months.CreateMonth(ctx, year, month, rows); err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}

	metrics.AddReservationsCreated(CommandNewMonth, len(rows))
	s.logger.Info().Str("month", label).Int("reservations", len(rows)).Msg("Month created")
	return rows, nil
}

// MemberTimetable is a member's reservations split around now.
type MemberTimetable struct {
	Member    model.Member
	Month     string
	Past      []slots.Slot
	Future    []slots.Slot
	NextMonth string
	Next      []slots.Slot
}

// MemberSchedule returns the member's slots of the current month split into
// past and future, plus next month's slots when that sheet exists.
func (s *Service) MemberSchedule(ctx context.Context, id string) (tt *MemberTimetable, err error) {
	defer func() { metrics.ObserveCommand(CommandShow, err) }()

	members, err := s.members.LoadMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	m, ok := model.FindMember(members, id)
	if !ok {
		return nil, &model.MemberNotFoundError{ID: id}
	}

	now := s.clock.Now()
	sheets, err := s.trackedMonths(ctx, now, true)
	if err != nil {
		return nil, err
	}

	own := model.MemberSlots(sheets[0].loaded, id)
	slots.Sort(own)
	past, future := s.schedule.Partition(own, now)

	tt = &MemberTimetable{
		Member: m,
		Month:  sheets[0].label(),
		Past:   past,
		Future: future,
	}
	if len(sheets) > 1 {
		tt.NextMonth = sheets[1].label()
		tt.Next = model.MemberSlots(sheets[1].loaded, id)
		slots.Sort(tt.Next)
	}
	return tt, nil
}

// Undo restores every sheet of the latest journal entry and drops the entry.
func (s *Service) Undo(ctx context.Context) (entry *backup.Entry, err error) {
	defer func() { metrics.ObserveCommand(CommandUndo, err) }()

	if s.journal == nil {
		return nil, ErrUndoUnavailable
	}
	entry, err = s.journal.Latest(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(entry.Targets))
	for t := range entry.Targets {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	for _, target := range targets {
		hash := entry.Targets[target]
		if target == MembersTarget {
			var members []model.Member
			if err := s.journal.Load(ctx, hash, &members); err != nil {
				return nil, fmt.Errorf("load %s snapshot: %w", target, err)
			}
			if err := s.members.SaveMembers(ctx, members); err != nil {
				return nil, fmt.Errorf("restore members: %w", err)
			}
			continue
		}

		year, month, err := calendar.ParseMonthLabel(target)
		if err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", entry.ID, err)
		}
		var rows []model.Reservation
		if err := s.journal.Load(ctx, hash, &rows); err != nil {
			return nil, fmt.Errorf("load %s snapshot: %w", target, err)
		}
		if err := s.months.SaveMonth(ctx, year, month, rows); err != nil {
			return nil, fmt.Errorf("restore %s: %w", target, err)
		}
	}

	if err := s.journal.Drop(ctx, entry.ID); err != nil {
		return nil, err
	}

	s.logger.Info().Str("entry", entry.ID).Str("command", entry.Command).Msg("Command undone")
	return entry, nil
}

func slotsAtHour(all []slots.Slot, hour string) []slots.Slot {
	var out []slots.Slot
	for _, s := range all {
		if s.Hour == hour {
			out = append(out, s)
		}
	}
	return out
}
