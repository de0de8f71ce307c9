// Package db is the transactional working copy of the roster and of one
// month's reservations. Every mutation is checked against the capacity
// limits inside the same transaction, and a violation discards it.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DefaultCapacity is the number of members a slot or a training hour can hold.
const DefaultCapacity = 10

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps sql.DB for the timetable working copy.
type DB struct {
	*sql.DB
	capacity int
	logger   *zerolog.Logger
}

// NewDB opens the database at path (MemoryPath for a throwaway copy) and creates the tables.
func NewDB(path string, capacity int, logger *zerolog.Logger) (*DB, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// The in-memory database lives and dies with its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: sqlDB, capacity: capacity, logger: logger}
	if err := instance.createTables(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Int("capacity", capacity).Msg("Working copy initialized")
	return instance, nil
}

// Capacity returns the configured per-slot and per-hour limit.
func (db *DB) Capacity() int {
	return db.capacity
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			training_hour TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id TEXT NOT NULL,
			day TEXT NOT NULL,
			hour TEXT NOT NULL,
			day_num INTEGER NOT NULL,
			minute_of_day INTEGER NOT NULL,
			UNIQUE (member_id, day, hour)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_training_hour ON members(training_hour)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_slot ON reservations(day, hour)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_order ON reservations(day_num, minute_of_day)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

// withTx runs fn in a transaction that is committed only when fn returns nil.
// Errors and panics roll it back.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				db.logger.Error().Err(rbErr).Msg("Rollback failed")
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit: %w", cErr)
		}
	}()

	return fn(tx)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
