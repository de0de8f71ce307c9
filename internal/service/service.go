// Package service runs the administrative commands of the timetable: it reads
// the sheets, validates every change in the constraint store and only then
// writes the sheets back.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"gymschedule/internal/backup"
	"gymschedule/internal/calendar"
	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/slots"
)

// MembersTarget names the member sheet in backup journal entries. Month
// sheets are named by their month label.
const MembersTarget = "members"

var (
	ErrMonthExists     = errors.New("month sheet already exists")
	ErrUndoUnavailable = errors.New("undo needs the backup journal")
)

// MemberSheet holds the roster.
type MemberSheet interface {
	LoadMembers(ctx context.Context) ([]model.Member, error)
	SaveMembers(ctx context.Context, members []model.Member) error
}

// ReservationSheets holds one reservation sheet per month. LoadMonth returns a
// *model.SheetMissingError for a month that was never created.
type ReservationSheets interface {
	LoadMonth(ctx context.Context, year, month int) ([]model.Reservation, error)
	SaveMonth(ctx context.Context, year, month int, rows []model.Reservation) error
	CreateMonth(ctx context.Context, year, month int, rows []model.Reservation) error
}

// Store is the transactional working copy the capacity rules are checked in.
type Store interface {
	ReplaceMembers(ctx context.Context, rows []model.Member) error
	InsertMemberIfRoomAvailable(ctx context.Context, m model.Member) error
	ReplaceReservations(ctx context.Context, rows []model.Reservation) error
	AssignNewMemberToFutureSlots(ctx context.Context, m model.Member, candidates []slots.Slot) ([]model.Reservation, []string, error)
	RemoveMemberReservations(ctx context.Context, memberID string) ([]model.Reservation, error)
	Reservations(ctx context.Context) ([]model.Reservation, error)
}

// Journal records what a command is about to overwrite.
type Journal interface {
	Record(ctx context.Context, command string, targets map[string]any) (*backup.Entry, error)
	Latest(ctx context.Context) (*backup.Entry, error)
	Load(ctx context.Context, hash string, v any) error
	Drop(ctx context.Context, id string) error
}

type Service struct {
	store    Store
	members  MemberSheet
	months   ReservationSheets
	schedule *slots.Schedule
	clock    cursor.Clock
	journal  Journal
	logger   *zerolog.Logger
}

func New(
	store Store,
	members MemberSheet,
	months ReservationSheets,
	schedule *slots.Schedule,
	clock cursor.Clock,
	logger *zerolog.Logger,
) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:    store,
		members:  members,
		months:   months,
		schedule: schedule,
		clock:    clock,
		logger:   logger,
	}
}

// UseJournal enables snapshots before every write and the Undo command.
func (s *Service) UseJournal(j Journal) {
	s.journal = j
}

// monthSheet is a month's rows as loaded and as they will be written.
type monthSheet struct {
	year, month int
	loaded      []model.Reservation
	rows        []model.Reservation
}

func (m *monthSheet) label() string {
	return calendar.MonthLabel(m.year, m.month)
}

// loadMonth reads a month sheet. With optional set a missing sheet yields nil.
func (s *Service) loadMonth(ctx context.Context, year, month int, optional bool) (*monthSheet, error) {
	rows, err := s.months.LoadMonth(ctx, year, month)
	if optional && errors.Is(err, model.ErrSheetMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", calendar.MonthLabel(year, month), err)
	}
	return &monthSheet{year: year, month: month, loaded: rows}, nil
}

// trackedMonths loads the current month and, when it exists, the next one.
func (s *Service) trackedMonths(ctx context.Context, now cursor.Cursor, requireCurrent bool) ([]*monthSheet, error) {
	var sheets []*monthSheet

	this, err := s.loadMonth(ctx, now.Year, now.Month, !requireCurrent)
	if err != nil {
		return nil, err
	}
	if this != nil {
		sheets = append(sheets, this)
	}

	ny, nm := calendar.NextMonth(now.Year, now.Month)
	next, err := s.loadMonth(ctx, ny, nm, true)
	if err != nil {
		return nil, err
	}
	if next != nil {
		sheets = append(sheets, next)
	}
	return sheets, nil
}

// persist snapshots the targets and writes members (when non-nil) and every
// month sheet. Nothing is written when the snapshot fails.
func (s *Service) persist(ctx context.Context, command string, oldMembers, newMembers []model.Member, sheets []*monthSheet) error {
	if s.journal != nil {
		targets := make(map[string]any, len(sheets)+1)
		if newMembers != nil {
			targets[MembersTarget] = nonNil(oldMembers)
		}
		for _, sh := range sheets {
			targets[sh.label()] = nonNil(sh.loaded)
		}
		if _, err := s.journal.Record(ctx, command, targets); err != nil {
			return fmt.Errorf("backup before %s: %w", command, err)
		}
	}

	if newMembers != nil {
		if err := s.members.SaveMembers(ctx, newMembers); err != nil {
			return fmt.Errorf("save members: %w", err)
		}
	}
	for _, sh := range sheets {
		if err := s.months.SaveMonth(ctx, sh.year, sh.month, sh.rows); err != nil {
			return fmt.Errorf("save %s: %w", sh.label(), err)
		}
	}
	return nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
