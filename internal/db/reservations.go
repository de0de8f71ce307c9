package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymschedule/internal/cursor"
	"gymschedule/internal/model"
	"gymschedule/internal/slots"
)

// ReplaceReservations swaps the month's reservations and checks the per-slot
// capacity. An empty rows list only clears.
func (db *DB) ReplaceReservations(ctx context.Context, rows []model.Reservation) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations`); err != nil {
			return fmt.Errorf("clear reservations: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		for _, r := range rows {
			if err := insertReservation(ctx, tx, r); err != nil {
				return err
			}
		}
		return db.checkSlotCapacity(ctx, tx)
	})
}

// AssignNewMemberToFutureSlots books m into every candidate slot whose day is
// not already full at m's training hour. A day counts as full when it holds
// capacity reservations at that hour. It returns the resulting reservations
// and the day labels that were skipped.
func (db *DB) AssignNewMemberToFutureSlots(ctx context.Context, m model.Member, candidates []slots.Slot) ([]model.Reservation, []string, error) {
	var (
		result  []model.Reservation
		skipped []string
	)

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		full, err := db.fullDays(ctx, tx, m.TrainingHour)
		if err != nil {
			return err
		}

		for _, s := range candidates {
			if full[s.Day] {
				skipped = append(skipped, s.Day)
				continue
			}
			if err := insertReservation(ctx, tx, model.Reservation{Member: m.ID, Slot: s}); err != nil {
				return err
			}
		}
		if err := db.checkSlotCapacity(ctx, tx); err != nil {
			return err
		}

		result, err = listReservations(ctx, tx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	db.logger.Debug().
		Str("member", m.ID).
		Int("booked", len(candidates)-len(skipped)).
		Strs("skipped", skipped).
		Msg("New member assigned")
	return result, skipped, nil
}

// RemoveMemberReservations deletes every reservation of memberID and returns the rest.
func (db *DB) RemoveMemberReservations(ctx context.Context, memberID string) ([]model.Reservation, error) {
	var remaining []model.Reservation
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE member_id = ?`, memberID); err != nil {
			return fmt.Errorf("delete reservations of %s: %w", memberID, err)
		}
		var err error
		remaining, err = listReservations(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

// Reservations returns the working copy in day-then-hour order.
func (db *DB) Reservations(ctx context.Context) ([]model.Reservation, error) {
	var rows []model.Reservation
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rows, err = listReservations(ctx, tx)
		return err
	})
	return rows, err
}

// SlotCount returns how many reservations a slot holds.
func (db *DB) SlotCount(ctx context.Context, s slots.Slot) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE day = ? AND hour = ?`, s.Day, s.Hour,
	).Scan(&count)
	return count, err
}

func (db *DB) fullDays(ctx context.Context, tx *sql.Tx, hour string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT day
		FROM reservations
		WHERE hour = ?
		GROUP BY day
		HAVING COUNT(*) >= ?`, hour, db.capacity)
	if err != nil {
		return nil, fmt.Errorf("find full days: %w", err)
	}
	defer rows.Close()

	full := make(map[string]bool)
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		full[day] = true
	}
	return full, rows.Err()
}

func (db *DB) checkSlotCapacity(ctx context.Context, tx *sql.Tx) error {
	var (
		day, hour string
		count     int
	)
	err := tx.QueryRowContext(ctx, `
		SELECT day, hour, COUNT(*) AS n
		FROM reservations
		GROUP BY day, hour
		HAVING COUNT(*) > ?
		ORDER BY MIN(day_num), MIN(minute_of_day)
		LIMIT 1`, db.capacity,
	).Scan(&day, &hour, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check slot capacity: %w", err)
	}
	return &model.SlotCapacityError{Day: day, Hour: hour, Count: count, Capacity: db.capacity}
}

func insertReservation(ctx context.Context, tx *sql.Tx, r model.Reservation) error {
	dayNum, err := slots.DayNumber(r.Slot.Day)
	if err != nil {
		return fmt.Errorf("reservation of %s: %w", r.Member, err)
	}
	h, m, err := cursor.ParseHour(r.Slot.Hour)
	if err != nil {
		return fmt.Errorf("reservation of %s: %w", r.Member, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (member_id, day, hour, day_num, minute_of_day) VALUES (?, ?, ?, ?, ?)`,
		r.Member, r.Slot.Day, r.Slot.Hour, dayNum, h*60+m,
	)
	if isUniqueViolation(err) {
		return &model.DuplicateReservationError{Member: r.Member, Day: r.Slot.Day, Hour: r.Slot.Hour}
	}
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func listReservations(ctx context.Context, tx *sql.Tx) ([]model.Reservation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT member_id, day, hour
		FROM reservations
		ORDER BY day_num, minute_of_day, member_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(&r.Member, &r.Slot.Day, &r.Slot.Hour); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
