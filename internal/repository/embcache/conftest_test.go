package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/eulex/internal/db"
	"github.com/kailas-cloud/eulex/internal/domain"
)

const testModel = "jina-embeddings-v3"

// --- Mocks ---

// lengthEmbedder embeds a text as [len(text), 1] and charges len(text)
// tokens, so tests can tell vectors apart without fixtures.
type lengthEmbedder struct {
	calls [][]string
	err   error
}

func (l *lengthEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if l.err != nil {
		return domain.EmbeddingResult{}, l.err
	}
	l.calls = append(l.calls, []string{text})
	return domain.EmbeddingResult{
		Embedding:    vectorFor(text),
		PromptTokens: len(text),
		TotalTokens:  len(text),
	}, nil
}

func (l *lengthEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if l.err != nil {
		return domain.BatchEmbeddingResult{}, l.err
	}
	l.calls = append(l.calls, texts)
	res := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		res.Embeddings[i] = vectorFor(t)
		res.PromptTokens += len(t)
		res.TotalTokens += len(t)
	}
	return res, nil
}

// plainEmbedder exposes only Embed.
type plainEmbedder struct{ inner *lengthEmbedder }

func (p plainEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return p.inner.Embed(ctx, text)
}

func vectorFor(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

// memStore is an in-memory KV with optional failure injection.
type memStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	gets   int
	sets   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

var errStoreDown = errors.New("connection refused")

func newLookups() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_embedding_cache_total"}, []string{"result"})
}

func newTestEmbedder(t *testing.T, inner domain.Embedder) (*Embedder, *memStore, *prometheus.CounterVec) {
	t.Helper()
	s := newMemStore()
	lookups := newLookups()
	return New(inner, s, testModel, lookups, nil), s, lookups
}
