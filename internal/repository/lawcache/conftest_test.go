package lawcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/db"
)

// mockKVStore is an in-memory store with optional error injection.
type mockKVStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: make(map[string][]byte)}
	return New(ms, zap.NewNop()), ms
}
