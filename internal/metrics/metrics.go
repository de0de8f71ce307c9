package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"gymschedule/internal/model"
)

const namespace = "gym_timetable"

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Count of reservations written by command.",
		},
		[]string{"command"},
	)

	capacityViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_violation_total",
			Help:      "Count of rejected writes by violated capacity kind.",
		},
		[]string{"kind"},
	)

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_total",
			Help:      "Count of administrative commands by outcome.",
		},
		[]string{"command", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCreated, capacityViolations, commands)
	})
}

func AddReservationsCreated(command string, n int) {
	if n <= 0 {
		return
	}
	reservationsCreated.WithLabelValues(command).Add(float64(n))
}

func IncCapacityViolation(kind string) {
	capacityViolations.WithLabelValues(kind).Inc()
}

// ObserveCommand counts one finished command. Capacity violations are also
// counted by kind.
func ObserveCommand(command string, err error) {
	outcome := Outcome(err)
	commands.WithLabelValues(command, outcome).Inc()

	switch {
	case errors.Is(err, model.ErrSlotCapacityExceeded):
		IncCapacityViolation("slot")
	case errors.Is(err, model.ErrTrainingHourCapacityExceeded):
		IncCapacityViolation("training_hour")
	}
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrSlotCapacityExceeded),
		errors.Is(err, model.ErrTrainingHourCapacityExceeded):
		return "capacity"
	case errors.Is(err, model.ErrInvalidTimeSlotSyntax),
		errors.Is(err, model.ErrEmptyRearrangement),
		errors.Is(err, model.ErrDuplicateDay),
		errors.Is(err, model.ErrInvalidDay),
		errors.Is(err, model.ErrDuplicateReservation):
		return "invalid"
	case errors.Is(err, model.ErrMemberNotFound),
		errors.Is(err, model.ErrSheetMissing):
		return "not_found"
	default:
		return "error"
	}
}

// Flush exports the registered metrics after a command: to a textfile for
// the node exporter and/or to a Pushgateway. Empty destinations are skipped.
func Flush(ctx context.Context, textfile, pushgatewayURL string) error {
	if textfile != "" {
		if err := prometheus.WriteToTextfile(textfile, prometheus.DefaultGatherer); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if pushgatewayURL != "" {
		err := push.New(pushgatewayURL, namespace).
			Gatherer(prometheus.DefaultGatherer).
			PushContext(ctx)
		if err != nil {
			return fmt.Errorf("push metrics: %w", err)
		}
	}
	return nil
}
