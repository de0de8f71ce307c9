package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/slots"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	database, err := NewDB(MemoryPath, DefaultCapacity, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func membersAt(hour string, n int) []model.Member {
	out := make([]model.Member, n)
	for i := range out {
		out[i] = model.Member{ID: fmt.Sprintf("m%02d", i), Name: fmt.Sprintf("Member %d", i), TrainingHour: hour}
	}
	return out
}

func fillSlot(s slots.Slot, n int, prefix string) []model.Reservation {
	out := make([]model.Reservation, n)
	for i := range out {
		out[i] = model.Reservation{Member: fmt.Sprintf("%s%02d", prefix, i), Slot: s}
	}
	return out
}

func TestNewDBOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timetable.db")
	database, err := NewDB(path, 0, nil)
	require.NoError(t, err)
	defer database.Close()

	assert.Equal(t, DefaultCapacity, database.Capacity())
	assert.FileExists(t, path)
}

func TestReplaceMembers(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	t.Run("within capacity", func(t *testing.T) {
		require.NoError(t, database.ReplaceMembers(ctx, membersAt("17:00", 10)))
		got, err := database.Members(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 10)
	})

	t.Run("violation keeps previous roster", func(t *testing.T) {
		err := database.ReplaceMembers(ctx, membersAt("08:00", 11))
		require.ErrorIs(t, err, model.ErrTrainingHourCapacityExceeded)

		var capErr *model.TrainingHourCapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, "08:00", capErr.Hour)
		assert.Equal(t, 11, capErr.Count)

		got, err := database.Members(ctx)
		require.NoError(t, err)
		require.Len(t, got, 10)
		assert.Equal(t, "17:00", got[0].TrainingHour)
	})

	t.Run("duplicate id", func(t *testing.T) {
		rows := []model.Member{{ID: "ben", TrainingHour: "08:00"}, {ID: "ben", TrainingHour: "17:00"}}
		assert.Error(t, database.ReplaceMembers(ctx, rows))
	})
}

func TestInsertMemberIfRoomAvailable(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	require.NoError(t, database.ReplaceMembers(ctx, membersAt("17:00", 9)))

	require.NoError(t, database.InsertMemberIfRoomAvailable(ctx, model.Member{ID: "david", Name: "David", TrainingHour: "17:00"}))

	err := database.InsertMemberIfRoomAvailable(ctx, model.Member{ID: "eve", Name: "Eve", TrainingHour: "17:00"})
	var capErr *model.TrainingHourCapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 10, capErr.Count)

	_, err = database.Member(ctx, "eve")
	assert.ErrorIs(t, err, model.ErrMemberNotFound)

	m, err := database.Member(ctx, "david")
	require.NoError(t, err)
	assert.Equal(t, "David", m.Name)
}

func TestReplaceReservations(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	slot := slots.Slot{Day: "25-Wed", Hour: "17:00"}

	require.NoError(t, database.ReplaceReservations(ctx, fillSlot(slot, 10, "m")))
	count, err := database.SlotCount(ctx, slot)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	t.Run("over capacity rolls back", func(t *testing.T) {
		err := database.ReplaceReservations(ctx, fillSlot(slot, 11, "x"))
		var capErr *model.SlotCapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, "25-Wed", capErr.Day)
		assert.Equal(t, "17:00", capErr.Hour)
		assert.Equal(t, 11, capErr.Count)

		rows, err := database.Reservations(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 10)
		assert.Equal(t, "m00", rows[0].Member)
	})

	t.Run("duplicate reservation rolls back", func(t *testing.T) {
		dup := []model.Reservation{
			{Member: "ben", Slot: slot},
			{Member: "ben", Slot: slot},
		}
		err := database.ReplaceReservations(ctx, dup)
		var dupErr *model.DuplicateReservationError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "ben", dupErr.Member)

		rows, err := database.Reservations(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 10)
	})

	t.Run("same member different slots same day", func(t *testing.T) {
		rows := []model.Reservation{
			{Member: "ben", Slot: slots.Slot{Day: "25-Wed", Hour: "17:00"}},
			{Member: "ben", Slot: slots.Slot{Day: "25-Wed", Hour: "08:00"}},
		}
		require.NoError(t, database.ReplaceReservations(ctx, rows))

		got, err := database.Reservations(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "08:00", got[0].Slot.Hour)
	})

	t.Run("empty clears", func(t *testing.T) {
		require.NoError(t, database.ReplaceReservations(ctx, nil))
		got, err := database.Reservations(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("malformed label", func(t *testing.T) {
		err := database.ReplaceReservations(ctx, []model.Reservation{{Member: "ben", Slot: slots.Slot{Day: "x", Hour: "17:00"}}})
		assert.Error(t, err)
	})
}

func TestAssignNewMemberToFutureSlots(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	sched := slots.DefaultSchedule()

	day25 := slots.Slot{Day: "25-Wed", Hour: "17:00"}
	day26 := slots.Slot{Day: "26-Thu", Hour: "17:00"}
	existing := append(fillSlot(day25, 10, "m"), fillSlot(day26, 3, "m")...)
	require.NoError(t, database.ReplaceReservations(ctx, existing))

	david := model.Member{ID: "david", Name: "David", TrainingHour: "17:00"}
	candidates := sched.FutureSlotsAtHour(cursor.MustNew(2020, 11, 24, 20, 0), "17:00")
	require.Equal(t, day25, candidates[0])

	rows, skipped, err := database.AssignNewMemberToFutureSlots(ctx, david, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"25-Wed"}, skipped)

	davids := model.MemberSlots(rows, "david")
	assert.Len(t, davids, len(candidates)-1)
	assert.Contains(t, davids, day26)
	assert.NotContains(t, davids, day25)

	count, err := database.SlotCount(ctx, day25)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, slots.Compare(rows[i-1].Slot, rows[i].Slot), 0)
	}
}

func TestAssignNewMemberOtherHourFull(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	database, err := NewDB(MemoryPath, 2, &logger)
	require.NoError(t, err)
	defer database.Close()

	// A full 08:00 slot does not make the 25th full for the 17:00 group.
	require.NoError(t, database.ReplaceReservations(ctx, fillSlot(slots.Slot{Day: "25-Wed", Hour: "08:00"}, 2, "m")))

	rows, skipped, err := database.AssignNewMemberToFutureSlots(ctx,
		model.Member{ID: "ann", TrainingHour: "17:00"},
		[]slots.Slot{{Day: "25-Wed", Hour: "17:00"}, {Day: "26-Thu", Hour: "17:00"}},
	)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Len(t, rows, 4)
}

func TestAssignNewMemberRejectsTamperedState(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	// A slot at another hour already over capacity is caught by the final check.
	for i := 0; i < 11; i++ {
		_, err := database.ExecContext(ctx,
			`INSERT INTO reservations (member_id, day, hour, day_num, minute_of_day) VALUES (?, '02-Mon', '06:00', 2, 360)`,
			fmt.Sprintf("x%02d", i))
		require.NoError(t, err)
	}

	_, _, err := database.AssignNewMemberToFutureSlots(ctx,
		model.Member{ID: "ann", TrainingHour: "17:00"},
		[]slots.Slot{{Day: "26-Thu", Hour: "17:00"}},
	)
	require.ErrorIs(t, err, model.ErrSlotCapacityExceeded)

	count, err := database.SlotCount(ctx, slots.Slot{Day: "26-Thu", Hour: "17:00"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemoveMemberReservations(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	rows := []model.Reservation{
		{Member: "ben", Slot: slots.Slot{Day: "03-Tue", Hour: "08:00"}},
		{Member: "ann", Slot: slots.Slot{Day: "02-Mon", Hour: "19:00"}},
		{Member: "ben", Slot: slots.Slot{Day: "02-Mon", Hour: "08:00"}},
		{Member: "zoe", Slot: slots.Slot{Day: "02-Mon", Hour: "06:00"}},
	}
	require.NoError(t, database.ReplaceReservations(ctx, rows))

	remaining, err := database.RemoveMemberReservations(ctx, "ben")
	require.NoError(t, err)
	assert.Equal(t, []model.Reservation{
		{Member: "zoe", Slot: slots.Slot{Day: "02-Mon", Hour: "06:00"}},
		{Member: "ann", Slot: slots.Slot{Day: "02-Mon", Hour: "19:00"}},
	}, remaining)

	remaining, err = database.RemoveMemberReservations(ctx, "ghost")
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	require.NoError(t, database.ReplaceMembers(ctx, membersAt("08:00", 1)))

	assert.Panics(t, func() {
		_ = database.withTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM members`)
			require.NoError(t, err)
			panic("boom")
		})
	})

	got, err := database.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
