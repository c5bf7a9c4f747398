package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/eulex/internal/db"
)

// Get returns the raw value at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// Set writes value at key with no expiry. Law texts and embeddings are
// immutable for a given key, so entries are never aged out here.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: key, Err: err}
	}
	return nil
}

// Incr pipelines INCRBY and EXPIRE NX in one round trip. A ttl below one
// second skips the expiry.
func (s *Store) Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	cmds := []rueidis.Completed{s.client.B().Incrby().Key(key).Increment(delta).Build()}
	if secs := int64(ttl / time.Second); secs > 0 {
		cmds = append(cmds, s.client.B().Expire().Key(key).Seconds(secs).Nx().Build())
	}

	results := s.client.DoMulti(ctx, cmds...)
	total, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncr, Key: key, Err: err}
	}
	for _, r := range results[1:] {
		if err := r.Error(); err != nil {
			return total, &db.Error{Op: db.OpIncr, Key: key, Err: err}
		}
	}
	return total, nil
}
