package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/metrics"
)

// DefaultMaxBatch caps the number of passages sent in one provider request.
const DefaultMaxBatch = 256

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Metered admits embedding calls against the token budget, splits large
// passage batches and books billed tokens to the budget and to the query's
// usage collector. Transport metrics live in transport/openai.
type Metered struct {
	inner    domain.Embedder
	provider string
	budget   BudgetChecker
	maxBatch int
	logger   *zap.Logger
}

// NewMetered wraps inner. budget may be nil; maxBatch <= 0 means
// DefaultMaxBatch.
func NewMetered(
	inner domain.Embedder,
	provider, model string,
	budget BudgetChecker,
	maxBatch int,
	logger *zap.Logger,
) *Metered {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Metered{
		inner:    inner,
		provider: provider,
		budget:   budget,
		maxBatch: maxBatch,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed embeds one text, typically the question.
func (m *Metered) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var res domain.EmbeddingResult
	err := m.call(ctx, 1, func() (int, error) {
		var err error
		res, err = m.inner.Embed(ctx, text)
		return res.TotalTokens, err
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return res, nil
}

// BatchEmbed embeds texts in chunks of at most maxBatch. The budget is
// checked before every chunk, so a long law can be cut off midway.
func (m *Metered) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for chunk := range slices.Chunk(texts, m.maxBatch) {
		var res domain.BatchEmbeddingResult
		err := m.call(ctx, len(chunk), func() (int, error) {
			var err error
			res, err = domain.EmbedMany(ctx, m.inner, chunk)
			return res.TotalTokens, err
		})
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (m *Metered) HealthCheck(ctx context.Context) error {
	if hc, ok := m.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// call admits n texts, runs fn and books the tokens it reports.
func (m *Metered) call(ctx context.Context, n int, fn func() (int, error)) error {
	if m.budget != nil {
		if err := m.budget.Check(ctx); err != nil {
			m.logger.Warn("Embedding refused by budget", zap.Int("texts", n), zap.Error(err))
			return fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	tokens, err := fn()
	took := time.Since(start)
	if err != nil {
		m.logger.Error("Embedding call failed", zap.Int("texts", n), zap.Duration("took", took), zap.Error(err))
		return classify(err)
	}

	m.book(ctx, tokens)
	m.logger.Debug("Embedding call done", zap.Int("texts", n), zap.Int("tokens", tokens), zap.Duration("took", took))
	return nil
}

func (m *Metered) book(ctx context.Context, tokens int) {
	domain.UsageFromContext(ctx).AddTokens(tokens)
	if m.budget == nil || tokens <= 0 {
		return
	}
	m.budget.Record(int64(tokens))
	metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(m.provider, "daily").Set(float64(m.budget.RemainingDaily()))
	metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(m.provider, "monthly").Set(float64(m.budget.RemainingMonthly()))
}

// classify keeps quota, provider and context errors as they are and marks
// everything else as a provider failure.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded),
		errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("embed: %w", err)
	default:
		return fmt.Errorf("embed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
}
