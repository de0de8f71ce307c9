package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gymschedule/internal/model"
)

// ReplaceMembers swaps the whole roster and checks the per-training-hour capacity.
// On violation nothing is kept.
func (db *DB) ReplaceMembers(ctx context.Context, rows []model.Member) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
			return fmt.Errorf("clear members: %w", err)
		}
		for _, m := range rows {
			if err := insertMember(ctx, tx, m); err != nil {
				return err
			}
		}
		return db.checkTrainingHourCapacity(ctx, tx)
	})
}

// InsertMemberIfRoomAvailable adds m unless its training hour is already full.
func (db *DB) InsertMemberIfRoomAvailable(ctx context.Context, m model.Member) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM members WHERE training_hour = ?`, m.TrainingHour,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("count members at %s: %w", m.TrainingHour, err)
		}
		if count >= db.capacity {
			return &model.TrainingHourCapacityError{Hour: m.TrainingHour, Count: count, Capacity: db.capacity}
		}
		return insertMember(ctx, tx, m)
	})
}

// Members returns the roster ordered by id.
func (db *DB) Members(ctx context.Context) ([]model.Member, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, training_hour, email, notes FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.TrainingHour, &m.Email, &m.Notes); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Member returns one member by id.
func (db *DB) Member(ctx context.Context, id string) (*model.Member, error) {
	var m model.Member
	err := db.QueryRowContext(ctx,
		`SELECT id, name, training_hour, email, notes FROM members WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.TrainingHour, &m.Email, &m.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.MemberNotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, m model.Member) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO members (id, name, training_hour, email, notes) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.TrainingHour, m.Email, m.Notes,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("member id %q is used twice", m.ID)
	}
	if err != nil {
		return fmt.Errorf("insert member %s: %w", m.ID, err)
	}
	return nil
}

func (db *DB) checkTrainingHourCapacity(ctx context.Context, tx *sql.Tx) error {
	var (
		hour  string
		count int
	)
	err := tx.QueryRowContext(ctx, `
		SELECT training_hour, COUNT(*) AS n
		FROM members
		GROUP BY training_hour
		HAVING COUNT(*) > ?
		ORDER BY n DESC, training_hour
		LIMIT 1`, db.capacity,
	).Scan(&hour, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check training hour capacity: %w", err)
	}
	return &model.TrainingHourCapacityError{Hour: hour, Count: count, Capacity: db.capacity}
}
