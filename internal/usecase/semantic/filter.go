// Package semantic keeps only the passages of a law that are close to the
// query in embedding space.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/logger"
	"github.com/kailas-cloud/eulex/internal/metrics"
)

// DefaultConcurrency bounds documents embedded in parallel.
const DefaultConcurrency = 4

// Filter scores passages by cosine similarity to the query.
type Filter struct {
	embedder    domain.Embedder
	threshold   float64
	concurrency int
	logger      *zap.Logger
}

// New creates a filter. The same embedder must serve queries and passages.
func New(embedder domain.Embedder, threshold float64, concurrency int, logger *zap.Logger) *Filter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{
		embedder:    embedder,
		threshold:   threshold,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Threshold returns the minimum cosine score a passage needs to survive.
func (f *Filter) Threshold() float64 { return f.threshold }

// Filter embeds the query once, scores every non-empty article and annex of
// each document, and keeps passages scoring at least the threshold.
// Documents without survivors are dropped; the rest keep input order and
// their passages keep document order.
func (f *Filter) Filter(
	ctx context.Context, query string, docs []law.StructuredDocument,
) ([]law.ScoredDocument, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	qres, err := f.embedder.Embed(ctx, query)
	if err != nil {
		return nil, providerError("embed query", err)
	}
	qvec := qres.Embedding

	scored := make([]law.ScoredDocument, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			sd, err := f.scoreDocument(gctx, qvec, doc)
			if err != nil {
				return err
			}
			scored[i] = sd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]law.ScoredDocument, 0, len(scored))
	for _, sd := range scored {
		if len(sd.Passages) > 0 {
			out = append(out, sd)
		}
	}

	logger.FromContextOr(ctx, f.logger).Debug("Semantic filter done",
		zap.Int("documents_in", len(docs)),
		zap.Int("documents_out", len(out)),
		zap.Float64("threshold", f.threshold),
	)
	return out, nil
}

func (f *Filter) scoreDocument(
	ctx context.Context, qvec []float32, doc law.StructuredDocument,
) (law.ScoredDocument, error) {
	sd := law.ScoredDocument{CelexID: doc.CelexID}

	var passages []law.Passage
	var texts []string
	for _, p := range doc.ScoringPassages() {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		passages = append(passages, p)
		texts = append(texts, p.Text)
	}
	if len(texts) == 0 {
		return sd, nil
	}

	res, err := domain.EmbedMany(ctx, f.embedder, texts)
	if err != nil {
		return sd, providerError("embed passages of "+doc.CelexID, err)
	}
	metrics.PipelinePassagesTotal.WithLabelValues("scored").Add(float64(len(texts)))

	for i, p := range passages {
		score := Cosine(qvec, res.Embeddings[i])
		if score < f.threshold {
			continue
		}
		sd.Passages = append(sd.Passages, law.ScoredPassage{
			Passage: p,
			Score:   score,
			CelexID: doc.CelexID,
		})
	}
	metrics.PipelinePassagesTotal.WithLabelValues("kept").Add(float64(len(sd.Passages)))
	return sd, nil
}

// Cosine returns dot(a, b) / (|a|·|b|), or 0 when either vector has zero norm
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func providerError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded),
		errors.Is(err, domain.ErrEmbeddingProviderError),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrEmbeddingProviderError, err)
	}
}
