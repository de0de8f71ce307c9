package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymschedule/internal/model"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&model.SlotCapacityError{Day: "25-Wed", Hour: "17:00", Count: 11, Capacity: 10}, "capacity"},
		{fmt.Errorf("validate: %w", &model.TrainingHourCapacityError{Hour: "08:00"}), "capacity"},
		{&model.SyntaxError{Token: "x"}, "invalid"},
		{model.ErrEmptyRearrangement, "invalid"},
		{&model.MemberNotFoundError{ID: "ghost"}, "not_found"},
		{&model.SheetMissingError{Month: "2020-12"}, "not_found"},
		{errors.New("disk full"), "error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%v", tt.err)
	}
}

func TestObserveCommand(t *testing.T) {
	Register()
	Register()

	okBefore := testutil.ToFloat64(commands.WithLabelValues("rearrange", "ok"))
	capBefore := testutil.ToFloat64(commands.WithLabelValues("rearrange", "capacity"))
	slotBefore := testutil.ToFloat64(capacityViolations.WithLabelValues("slot"))

	ObserveCommand("rearrange", nil)
	ObserveCommand("rearrange", &model.SlotCapacityError{Day: "25-Wed", Hour: "17:00"})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(commands.WithLabelValues("rearrange", "ok")))
	assert.Equal(t, capBefore+1, testutil.ToFloat64(commands.WithLabelValues("rearrange", "capacity")))
	assert.Equal(t, slotBefore+1, testutil.ToFloat64(capacityViolations.WithLabelValues("slot")))
}

func TestAddReservationsCreated(t *testing.T) {
	before := testutil.ToFloat64(reservationsCreated.WithLabelValues("add-member"))
	AddReservationsCreated("add-member", 4)
	AddReservationsCreated("add-member", 0)
	assert.Equal(t, before+4, testutil.ToFloat64(reservationsCreated.WithLabelValues("add-member")))
}

func TestFlushTextfile(t *testing.T) {
	Register()
	ObserveCommand("show", nil)

	path := filepath.Join(t.TempDir(), "timetable.prom")
	require.NoError(t, Flush(context.Background(), path, ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gym_timetable_command_total")

	assert.NoError(t, Flush(context.Background(), "", ""))
}
