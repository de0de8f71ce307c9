// Package backup keeps the previous content of every sheet a command is about
// to overwrite, so the last command can be undone.
//
// Snapshots are stored once per content hash. A journal entry maps each
// target (the member sheet or a month sheet) to the hash of its snapshot.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrJournalEmpty = errors.New("backup journal is empty")
	ErrBlobMissing  = errors.New("backup snapshot missing")
	ErrBlobCorrupt  = errors.New("backup snapshot does not match its hash")
)

// Entry is one command's set of snapshots.
type Entry struct {
	ID        string            `json:"id"`
	Command   string            `json:"command"`
	Targets   map[string]string `json:"targets"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store persists snapshots and journal entries.
type Store interface {
	PutBlob(ctx context.Context, hash string, data []byte) error
	Blob(ctx context.Context, hash string) ([]byte, error)
	Push(ctx context.Context, e Entry) error
	Latest(ctx context.Context) (*Entry, error)
	Drop(ctx context.Context, id string) error
	Cleanup(ctx context.Context, cutoff time.Time) (int, error)
}

type Journal struct {
	store     Store
	retention time.Duration
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewJournal creates a journal. retentionDays <= 0 keeps everything.
func NewJournal(store Store, retentionDays int, logger *zerolog.Logger) *Journal {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Journal{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// Hash returns the content address of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Record snapshots every target as JSON and pushes one entry for command.
func (j *Journal) Record(ctx context.Context, command string, targets map[string]any) (*Entry, error) {
	entry := Entry{
		ID:        uuid.NewString(),
		Command:   command,
		Targets:   make(map[string]string, len(targets)),
		CreatedAt: j.now().UTC(),
	}

	for target, v := range targets {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot of %s: %w", target, err)
		}
		hash := Hash(data)
		if err := j.store.PutBlob(ctx, hash, data); err != nil {
			return nil, fmt.Errorf("store snapshot of %s: %w", target, err)
		}
		entry.Targets[target] = hash
	}

	if err := j.store.Push(ctx, entry); err != nil {
		return nil, fmt.Errorf("push journal entry: %w", err)
	}

	j.logger.Info().
		Str("entry", entry.ID).
		Str("command", command).
		Int("targets", len(entry.Targets)).
		Msg("Backup recorded")
	return &entry, nil
}

// Latest returns the most recent entry or ErrJournalEmpty.
func (j *Journal) Latest(ctx context.Context) (*Entry, error) {
	return j.store.Latest(ctx)
}

// Load decodes the snapshot stored under hash into v.
func (j *Journal) Load(ctx context.Context, hash string, v any) error {
	data, err := j.store.Blob(ctx, hash)
	if err != nil {
		return err
	}
	if Hash(data) != hash {
		return fmt.Errorf("%w: %s", ErrBlobCorrupt, hash)
	}
	return json.Unmarshal(data, v)
}

// Drop removes an entry once it has been restored.
func (j *Journal) Drop(ctx context.Context, id string) error {
	return j.store.Drop(ctx, id)
}

// Cleanup removes entries and snapshots older than the retention period.
func (j *Journal) Cleanup(ctx context.Context) {
	if j.retention <= 0 {
		return
	}
	removed, err := j.store.Cleanup(ctx, j.now().Add(-j.retention))
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to clean up old backups")
		return
	}
	if removed > 0 {
		j.logger.Info().Int("removed", removed).Msg("Old backups deleted")
	}
}
