package semantic

import (
	"context"
	"sync"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
)

// --- Mocks ---

// vecEmbedder returns a fixed vector per text and a default for anything else.
type vecEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	fallback   []float32
	err        error
	queryErr   error
	texts      []string
	batchCalls int
}

func (e *vecEmbedder) vector(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return e.fallback
}

func (e *vecEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queryErr != nil {
		return domain.EmbeddingResult{}, e.queryErr
	}
	e.texts = append(e.texts, text)
	return domain.EmbeddingResult{Embedding: e.vector(text)}, nil
}

func (e *vecEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchCalls++
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		e.texts = append(e.texts, t)
		out[i] = e.vector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func article(id, text string) law.Passage {
	return law.Passage{ID: id, Kind: law.KindArticle, Text: text}
}

func annex(id, text string) law.Passage {
	return law.Passage{ID: id, Kind: law.KindAnnex, Text: text}
}
