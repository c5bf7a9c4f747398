package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// countingEmbedder returns a vector derived from the text length.
type countingEmbedder struct {
	embedCalls int
	batchCalls int
	batchSizes []int
	err        error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	c.embedCalls++
	if c.err != nil {
		return domain.EmbeddingResult{}, c.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func (c *countingEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	c.batchCalls++
	c.batchSizes = append(c.batchSizes, len(texts))
	if c.err != nil {
		return domain.BatchEmbeddingResult{}, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func TestMemoEmbedder_EmbedHitsMemory(t *testing.T) {
	inner := &countingEmbedder{}
	m, err := NewMemoEmbedder(inner, 8)
	if err != nil {
		t.Fatalf("NewMemoEmbedder: %v", err)
	}

	for range 3 {
		res, err := m.Embed(context.Background(), "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Embedding[0] != 3 {
			t.Fatalf("unexpected vector %v", res.Embedding)
		}
	}
	if inner.embedCalls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.embedCalls)
	}
}

func TestMemoEmbedder_BatchDedupesAndMixes(t *testing.T) {
	inner := &countingEmbedder{}
	m, _ := NewMemoEmbedder(inner, 8)

	if _, err := m.Embed(context.Background(), "hit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := m.BatchEmbed(context.Background(), []string{"aa", "hit", "aa", "bbbb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{2, 3, 2, 4}
	for i, v := range want {
		if res.Embeddings[i][0] != v {
			t.Errorf("embedding[%d] = %v, want %v", i, res.Embeddings[i][0], v)
		}
	}
	if len(inner.batchSizes) != 1 || inner.batchSizes[0] != 2 {
		t.Errorf("expected one inner batch of 2 unique misses, got %v", inner.batchSizes)
	}
	if res.TotalTokens != 2 {
		t.Errorf("expected 2 tokens for misses, got %d", res.TotalTokens)
	}
}

func TestMemoEmbedder_AllHitsSkipInner(t *testing.T) {
	inner := &countingEmbedder{}
	m, _ := NewMemoEmbedder(inner, 8)
	if _, err := m.BatchEmbed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.BatchEmbed(context.Background(), []string{"b", "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected inner called once, got %d", inner.batchCalls)
	}
}

func TestMemoEmbedder_Evicts(t *testing.T) {
	inner := &countingEmbedder{}
	m, _ := NewMemoEmbedder(inner, 2)

	for _, s := range []string{"a", "b", "c"} {
		if _, err := m.Embed(context.Background(), s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 entries after eviction, got %d", m.Len())
	}
	if _, err := m.Embed(context.Background(), "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 4 {
		t.Errorf("expected evicted entry to be re-embedded, got %d calls", inner.embedCalls)
	}
}

func TestMemoEmbedder_ErrorNotMemoized(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	m, _ := NewMemoEmbedder(inner, 2)

	if _, err := m.Embed(context.Background(), "a"); err == nil {
		t.Fatal("expected error")
	}
	if m.Len() != 0 {
		t.Errorf("failed embeds must not be memoized, got %d entries", m.Len())
	}
}
