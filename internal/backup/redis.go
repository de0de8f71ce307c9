package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxEntries bounds the Redis journal list.
const DefaultMaxEntries = 100

// RedisStore keeps snapshots as plain keys with a TTL and the journal as a
// list, newest first.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	maxEntries int64
}

// NewRedisStore creates a store. ttl <= 0 keeps snapshots forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "timetable:backup:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, maxEntries: DefaultMaxEntries}
}

func (s *RedisStore) blobKey(hash string) string { return s.prefix + "blob:" + hash }
func (s *RedisStore) journalKey() string         { return s.prefix + "journal" }

func (s *RedisStore) PutBlob(ctx context.Context, hash string, data []byte) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.blobKey(hash), data, ttl).Err()
}

func (s *RedisStore) Blob(ctx context.Context, hash string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.blobKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrBlobMissing, hash)
	}
	return data, err
}

func (s *RedisStore) Push(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.journalKey(), data)
	pipe.LTrim(ctx, s.journalKey(), 0, s.maxEntries-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Latest(ctx context.Context) (*Entry, error) {
	raw, err := s.client.LIndex(ctx, s.journalKey(), 0).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJournalEmpty
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode journal entry: %w", err)
	}
	return &e, nil
}

func (s *RedisStore) Drop(ctx context.Context, id string) error {
	raws, err := s.client.LRange(ctx, s.journalKey(), 0, -1).Result()
	if err != nil {
		return err
	}
	for _, raw := range raws {
		var e Entry
		if json.Unmarshal([]byte(raw), &e) == nil && e.ID == id {
			return s.client.LRem(ctx, s.journalKey(), 1, raw).Err()
		}
	}
	return fmt.Errorf("journal entry %s not found", id)
}

// Cleanup drops entries created before cutoff. Snapshots expire on their own.
func (s *RedisStore) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	raws, err := s.client.LRange(ctx, s.journalKey(), 0, -1).Result()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || !e.CreatedAt.Before(cutoff) {
			continue
		}
		n, err := s.client.LRem(ctx, s.journalKey(), 1, raw).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, nil
}
