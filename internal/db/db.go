// Package db defines the storage contracts behind the law and embedding
// caches. Backends live in the bolt and redis subpackages.
package db

import (
	"context"
	"time"
)

// Store is what every cache backend provides.
type Store interface {
	Pinger
	KVStore
	Close()
}

// Pinger reports whether the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore reads and writes opaque values. Get returns ErrKeyNotFound for
// absent keys. Values are kept until overwritten.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CounterStore holds integer counters that expire on their own.
// Only network backends implement it.
type CounterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Incr adds delta to key and returns the new value. ttl is applied only
	// when the key has no expiry yet, so repeated calls never extend it.
	Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
