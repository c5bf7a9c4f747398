package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// MemoEmbedder keeps recently embedded texts in process memory, in front of
// the persistent vector cache.
type MemoEmbedder struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

// NewMemoEmbedder wraps inner with an LRU of the given size.
func NewMemoEmbedder(inner domain.Embedder, size int) (*MemoEmbedder, error) {
	if size <= 0 {
		size = domain.DefaultEmbeddingMemoSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create memo cache: %w", err)
	}
	return &MemoEmbedder{inner: inner, cache: c}, nil
}

// Embed returns the memoized vector or delegates to inner.
func (m *MemoEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if vec, ok := m.cache.Get(text); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	res, err := m.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("memo embed: %w", err)
	}
	m.cache.Add(text, res.Embedding)
	return res, nil
}

// BatchEmbed serves memoized texts locally and sends the rest to inner in one call.
// Duplicate texts within the batch are embedded once.
func (m *MemoEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, len(texts))
	pending := make(map[string][]int)
	var missTexts []string
	for i, t := range texts {
		if vec, ok := m.cache.Get(t); ok {
			out[i] = vec
			continue
		}
		if _, seen := pending[t]; !seen {
			missTexts = append(missTexts, t)
		}
		pending[t] = append(pending[t], i)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedMany(ctx, m.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("memo batch embed: %w", err)
	}
	for j, t := range missTexts {
		vec := res.Embeddings[j]
		m.cache.Add(t, vec)
		for _, i := range pending[t] {
			out[i] = vec
		}
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (m *MemoEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := m.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// Len returns the number of memoized vectors.
func (m *MemoEmbedder) Len() int { return m.cache.Len() }
