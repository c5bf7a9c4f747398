package fulltext

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/eulex/internal/domain/law"
)

// --- Mocks ---

type memCache struct {
	mu     sync.Mutex
	docs   map[string]law.StructuredDocument
	getErr error
	puts   int
}

func newMemCache() *memCache {
	return &memCache{docs: make(map[string]law.StructuredDocument)}
}

func (c *memCache) Get(_ context.Context, id string) (law.StructuredDocument, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return law.StructuredDocument{}, false, c.getErr
	}
	d, ok := c.docs[id]
	if ok && d.IsEmpty() {
		return law.StructuredDocument{}, false, nil
	}
	return d, ok, nil
}

func (c *memCache) Put(_ context.Context, doc law.StructuredDocument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc.IsEmpty() {
		return nil
	}
	c.puts++
	c.docs[doc.CelexID] = doc
	return nil
}

type stubFetcher struct {
	mu    sync.Mutex
	docs  map[string]law.StructuredDocument
	fail  map[string]bool
	calls map[string]int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		docs:  make(map[string]law.StructuredDocument),
		fail:  make(map[string]bool),
		calls: make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(_ context.Context, id string) (law.StructuredDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if f.fail[id] {
		return law.StructuredDocument{}, errors.New("parse error")
	}
	return f.docs[id], nil
}

func (f *stubFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}
