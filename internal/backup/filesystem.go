package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const entryTimeFormat = "20060102T150405.000000000"

// FileStore keeps snapshots under <dir>/blobs and entries under <dir>/journal.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"blobs", "journal"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) blobPath(hash string) string {
	return filepath.Join(s.dir, "blobs", hash+".json")
}

func (s *FileStore) journalDir() string {
	return filepath.Join(s.dir, "journal")
}

// PutBlob writes data once per hash. An existing snapshot only gets its
// modification time refreshed so retention counts from its last use.
func (s *FileStore) PutBlob(_ context.Context, hash string, data []byte) error {
	path := s.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		now := time.Now()
		return os.Chtimes(path, now, now)
	}
	return writeFileAtomic(path, data)
}

func (s *FileStore) Blob(_ context.Context, hash string) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobMissing, hash)
	}
	return data, err
}

func (s *FileStore) Push(_ context.Context, e Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.json", e.CreatedAt.UTC().Format(entryTimeFormat), e.ID)
	return writeFileAtomic(filepath.Join(s.journalDir(), name), data)
}

func (s *FileStore) Latest(_ context.Context) (*Entry, error) {
	names, err := s.entryNames()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrJournalEmpty
	}
	return s.readEntry(names[len(names)-1])
}

func (s *FileStore) Drop(_ context.Context, id string) error {
	names, err := s.entryNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if strings.HasSuffix(name, "_"+id+".json") {
			return os.Remove(filepath.Join(s.journalDir(), name))
		}
	}
	return fmt.Errorf("journal entry %s not found", id)
}

// Cleanup deletes entries created before cutoff and snapshots not touched since.
func (s *FileStore) Cleanup(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0

	names, err := s.entryNames()
	if err != nil {
		return 0, err
	}
	for _, name := range names {
		stamp, _, _ := strings.Cut(name, "_")
		created, err := time.Parse(entryTimeFormat, stamp)
		if err != nil || !created.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.journalDir(), name)); err == nil {
			removed++
		}
	}

	blobs, err := os.ReadDir(filepath.Join(s.dir, "blobs"))
	if err != nil {
		return removed, err
	}
	for _, file := range blobs {
		info, err := file.Info()
		if err != nil || file.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, "blobs", file.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// entryNames lists journal files oldest first.
func (s *FileStore) entryNames() ([]string, error) {
	files, err := os.ReadDir(s.journalDir())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	return names, nil
}

func (s *FileStore) readEntry(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.journalDir(), name))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode journal entry %s: %w", name, err)
	}
	return &e, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
