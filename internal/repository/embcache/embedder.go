// Package embcache persists passage and query embeddings in the cache store
// so repeated questions about the same laws do not hit the provider again.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/db"
	"github.com/kailas-cloud/eulex/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "emb:"

// recordVersion leads every stored vector. Records with another leading
// byte are treated as misses and overwritten.
const recordVersion byte = 1

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Embedder serves vectors from the store and embeds only what is missing.
// Keys are scoped by model so switching models never serves stale vectors.
type Embedder struct {
	inner   domain.Embedder
	store   store
	model   string
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner. lookups is labelled by "result" (hit/miss) and may be nil.
func New(
	inner domain.Embedder,
	s store,
	model string,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{inner: inner, store: s, model: model, lookups: lookups, logger: logger}
}

// Key returns the storage key of text under model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + model + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the stored vector for text or embeds and stores it.
// A hit reports zero tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := Key(e.model, text)
	if vec, ok := e.load(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	e.save(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed looks every text up, then sends the distinct misses to the
// inner embedder in one batch. Passages repeated within a law (boilerplate
// paragraphs, identical recitals) are embedded once. Token usage covers the
// misses only.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, len(texts))
	pending := make(map[string][]int) // key -> positions waiting on it
	var missKeys, missTexts []string

	for i, text := range texts {
		key := Key(e.model, text)
		if waiting, seen := pending[key]; seen {
			pending[key] = append(waiting, i)
			continue
		}
		if vec, ok := e.load(ctx, key); ok {
			out[i] = vec
			continue
		}
		pending[key] = []int{i}
		missKeys = append(missKeys, key)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedMany(ctx, e.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d misses: %w", len(missTexts), err)
	}

	for j, key := range missKeys {
		vec := res.Embeddings[j]
		for _, i := range pending[key] {
			out[i] = vec
		}
		e.save(ctx, key, vec)
	}

	e.logger.Debug("Embedding cache batch",
		zap.Int("texts", len(texts)),
		zap.Int("embedded", len(missTexts)),
	)
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (e *Embedder) load(ctx context.Context, key string) ([]float32, bool) {
	data, err := e.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		e.count("miss")
		return nil, false
	case err != nil:
		e.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		e.count("miss")
		return nil, false
	}

	vec, err := decodeVector(data)
	if err != nil {
		e.logger.Warn("Discarding unreadable cached embedding", zap.String("key", key), zap.Error(err))
		e.count("miss")
		return nil, false
	}
	e.count("hit")
	return vec, true
}

func (e *Embedder) save(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := e.store.Set(ctx, key, encodeVector(vec)); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string) {
	if e.lookups != nil {
		e.lookups.WithLabelValues(result).Inc()
	}
}

// encodeVector lays out recordVersion followed by little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 1, 1+len(v)*4)
	buf[0] = recordVersion
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("empty record")
	}
	if data[0] != recordVersion {
		return nil, fmt.Errorf("record version %d, want %d", data[0], recordVersion)
	}
	body := data[1:]
	if len(body) == 0 || len(body)%4 != 0 {
		return nil, fmt.Errorf("record body of %d bytes is not a float32 vector", len(body))
	}
	vec := make([]float32, len(body)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return vec, nil
}
