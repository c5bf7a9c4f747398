package pipeline

import (
	"context"
	"sync"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/lexical"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
)

// --- Mocks ---

type mockSearcher struct {
	res     lexical.Results
	err     error
	queries []string
	depth   int
}

func (m *mockSearcher) Search(_ context.Context, q string, depth int) (lexical.Results, error) {
	m.queries = append(m.queries, q)
	m.depth = depth
	return m.res, m.err
}

type mockCatalog struct {
	docs map[string]law.Document
}

func (m *mockCatalog) Get(id string) (law.Document, bool) {
	d, ok := m.docs[id]
	return d, ok
}

func (m *mockCatalog) Titles(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if d, ok := m.docs[id]; ok {
			out[id] = d.Title
		}
	}
	return out
}

type mockResolver struct {
	docs map[string]law.StructuredDocument
	err  error
	ids  []string
}

func (m *mockResolver) Resolve(_ context.Context, ids []string) ([]law.StructuredDocument, error) {
	m.ids = ids
	if m.err != nil {
		return nil, m.err
	}
	out := make([]law.StructuredDocument, len(ids))
	for i, id := range ids {
		out[i] = m.docs[id]
		out[i].CelexID = id
	}
	return out, nil
}

type mockFilter struct {
	out   []law.ScoredDocument
	err   error
	query string
	docs  []law.StructuredDocument
}

func (m *mockFilter) Filter(
	_ context.Context, q string, docs []law.StructuredDocument,
) ([]law.ScoredDocument, error) {
	m.query = q
	m.docs = docs
	return m.out, m.err
}

type mockAggregator struct {
	ctx    aggregate.Context
	docs   []law.ScoredDocument
	titles map[string]string
}

func (m *mockAggregator) Aggregate(docs []law.ScoredDocument, titles map[string]string) aggregate.Context {
	m.docs = docs
	m.titles = titles
	return m.ctx
}

type mockAssistant struct {
	rewritten  string
	rewriteErr error
	answer     string
	answerErr  error

	rewriteCalls int
	question     string
	lawContext   string
}

func (m *mockAssistant) RewriteQuery(_ context.Context, q string) (string, error) {
	m.rewriteCalls++
	return m.rewritten, m.rewriteErr
}

func (m *mockAssistant) Answer(_ context.Context, q, lawContext string) (string, error) {
	m.question = q
	m.lawContext = lawContext
	return m.answer, m.answerErr
}

// mapEmbedder returns a fixed vector per text and fallback for anything else.
type mapEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
}

func (e *mapEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: e.fallback}, nil
}

// mapFetcher serves structured documents from memory and counts calls.
type mapFetcher struct {
	mu    sync.Mutex
	docs  map[string]law.StructuredDocument
	calls int
}

func (f *mapFetcher) Fetch(_ context.Context, id string) (law.StructuredDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	d, ok := f.docs[id]
	if !ok {
		return law.StructuredDocument{}, domain.ErrFetchFailed
	}
	return d, nil
}

func hits(ids ...string) []lexical.RankedResult {
	out := make([]lexical.RankedResult, len(ids))
	for i, id := range ids {
		out[i] = lexical.RankedResult{DocID: id, Rank: i, Score: float64(len(ids) - i)}
	}
	return out
}
