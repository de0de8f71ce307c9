package workbook

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gymschedule/internal/model"
	"gymschedule/internal/sheet"
	"gymschedule/internal/slots"
)

func newWorkbook(t *testing.T) (*Workbook, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "timetable.xlsx")
	return New(path, slots.DefaultSchedule(), nil), path
}

func TestMembersRoundTrip(t *testing.T) {
	ctx := context.Background()
	wb, path := newWorkbook(t)

	members, err := wb.LoadMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)

	want := []model.Member{
		{ID: "ann", Name: "Ann", TrainingHour: "08:00", Email: "ann@example.com"},
		{ID: "ben", Name: "Ben", TrainingHour: "17:00"},
	}
	require.NoError(t, wb.SaveMembers(ctx, want))

	got, err := wb.LoadMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, wb.SaveMembers(ctx, want[:1]))
	got, err = wb.LoadMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, want[:1], got)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheet.MembersSheet}, f.GetSheetList())
}

func TestMonthLifecycle(t *testing.T) {
	ctx := context.Background()
	wb, _ := newWorkbook(t)

	_, err := wb.LoadMonth(ctx, 2020, 12)
	var missing *model.SheetMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "2020-12", missing.Month)

	assert.ErrorIs(t, wb.SaveMonth(ctx, 2020, 12, nil), model.ErrSheetMissing)

	rows := []model.Reservation{
		{Member: "ann", Slot: slots.Slot{Day: "01-Tue", Hour: "08:00"}},
		{Member: "ben", Slot: slots.Slot{Day: "01-Tue", Hour: "17:00"}},
		{Member: "ann", Slot: slots.Slot{Day: "02-Wed", Hour: "08:00"}},
	}
	require.NoError(t, wb.CreateMonth(ctx, 2020, 12, rows))
	assert.Error(t, wb.CreateMonth(ctx, 2020, 12, rows))

	got, err := wb.LoadMonth(ctx, 2020, 12)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	require.NoError(t, wb.SaveMonth(ctx, 2020, 12, rows[1:2]))
	got, err = wb.LoadMonth(ctx, 2020, 12)
	require.NoError(t, err)
	assert.Equal(t, rows[1:2], got)

	require.NoError(t, wb.SaveMonth(ctx, 2020, 12, nil))
	got, err = wb.LoadMonth(ctx, 2020, 12)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadMonthRejectsBadRows(t *testing.T) {
	ctx := context.Background()
	wb, path := newWorkbook(t)
	require.NoError(t, wb.CreateMonth(ctx, 2020, 11, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("2020-11", "A2", &[]interface{}{"25-Thu", "17:00", "ben"}))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	_, err = wb.LoadMonth(ctx, 2020, 11)
	var rowErr *sheet.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Row)
}
