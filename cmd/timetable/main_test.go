package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymschedule/internal/backup"
	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/service"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			fmt.Errorf("2020-12: %w", &model.SlotCapacityError{Day: "02-Wed", Hour: "17:00", Count: 11, Capacity: 10}),
			"02-Wed at 17:00 would have 11 people, the limit is 10; nothing was changed",
		},
		{&model.TrainingHourCapacityError{Hour: "17:00", Count: 10, Capacity: 10}, "the 17:00 group already has 10 of 10 members; pick another training hour"},
		{&model.SyntaxError{Token: "10:00", Reason: "not a training hour"}, `cannot read the days to add at "10:00": not a training hour`},
		{&model.DuplicateDayError{Kind: "remove", Day: 2}, "day 2 is listed twice in the days to remove"},
		{&model.MemberNotFoundError{ID: "zoe"}, `there is no member with id "zoe"`},
		{&model.SheetMissingError{Month: "2020-12"}, "the timetable for 2020-12 has not been created yet; run new-month 2020-12 first"},
		{model.ErrEmptyRearrangement, "nothing to rearrange: give --add and/or --remove"},
		{backup.ErrJournalEmpty, "there is nothing to undo"},
		{service.ErrUndoUnavailable, "undo is not available: enable backup in the configuration"},
		{errors.New("disk full"), "disk full"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, describeError(tt.err))
	}
}

func TestSplitTokens(t *testing.T) {
	assert.Equal(t, []string{"1", "3", "08:00", "5", "17:00"}, splitTokens([]string{"1", "3", "08:00", "5 17:00"}))
	assert.Nil(t, splitTokens(nil))
}

func TestTargetMonth(t *testing.T) {
	y, m, err := targetMonth(nil, cursor.MustNew(2020, 12, 15, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, 2021, y)
	assert.Equal(t, 1, m)

	y, m, err = targetMonth([]string{"2021-02"}, cursor.MustNew(2020, 12, 15, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, 2021, y)
	assert.Equal(t, 2, m)

	_, _, err = targetMonth([]string{"February"}, cursor.MustNew(2020, 12, 15, 9, 0))
	assert.Error(t, err)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
timetable:
  timezone: UTC
storage:
  backend: workbook
  workbook:
    path: %s
backup:
  enabled: true
  path: %s
metrics:
  textfile: %s
logging:
  level: warn
`, filepath.Join(dir, "timetable.xlsx"), filepath.Join(dir, "backups"), filepath.Join(dir, "timetable.prom"))

	path := filepath.Join(dir, "timetable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewMonthAndUndo(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := run(t, "--config", cfg, "new-month", "2099-01")
	require.NoError(t, err)
	assert.Equal(t, "Created 2099-01 with 0 reservations\n", out)

	_, err = run(t, "--config", cfg, "new-month", "2099-01")
	assert.ErrorIs(t, err, service.ErrMonthExists)

	out, err = run(t, "--config", cfg, "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "Undid new-month")

	_, err = run(t, "--config", cfg, "undo")
	assert.ErrorIs(t, err, backup.ErrJournalEmpty)

	assert.FileExists(t, filepath.Join(filepath.Dir(cfg), "timetable.prom"))
}

func TestCommandErrors(t *testing.T) {
	cfg := writeTestConfig(t)

	_, err := run(t, "--config", cfg, "remove-member", "zoe")
	assert.ErrorIs(t, err, model.ErrMemberNotFound)

	_, err = run(t, "--config", cfg, "rearrange", "zoe")
	assert.ErrorIs(t, err, model.ErrEmptyRearrangement)

	_, err = run(t, "--config", cfg, "add-member", "Zoe")
	assert.Error(t, err, "missing --hour")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "undo")
	assert.Error(t, err)
}
