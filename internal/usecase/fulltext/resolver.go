// Package fulltext maps candidate CELEX ids to their structured full text,
// reading through a persistent cache.
package fulltext

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/logger"
	"github.com/kailas-cloud/eulex/internal/metrics"
)

// DefaultConcurrency bounds parallel fetches per query.
const DefaultConcurrency = 4

// Resolver resolves full texts for a batch of candidates.
type Resolver struct {
	cache       Cache
	fetcher     Fetcher
	concurrency int
	logger      *zap.Logger
}

// New creates a resolver. concurrency <= 0 uses DefaultConcurrency.
func New(cache Cache, fetcher Fetcher, concurrency int, logger *zap.Logger) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{cache: cache, fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// Resolve returns one cleaned document per id, in the order of ids. A
// document that cannot be fetched or parsed comes back empty (only CelexID
// set) and the batch continues. The only error is context cancellation.
func (r *Resolver) Resolve(ctx context.Context, ids []string) ([]law.StructuredDocument, error) {
	out := make([]law.StructuredDocument, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			out[i] = r.resolveOne(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve full texts: %w", err)
	}
	return out, nil
}

func (r *Resolver) resolveOne(ctx context.Context, id string) law.StructuredDocument {
	log := logger.FromContextOr(ctx, r.logger).With(zap.String("celex_id", id))

	doc, ok, err := r.cache.Get(ctx, id)
	switch {
	case err != nil:
		metrics.FulltextCacheTotal.WithLabelValues("error").Inc()
		log.Warn("Full-text cache read failed, fetching", zap.Error(err))
	case ok:
		metrics.FulltextCacheTotal.WithLabelValues("hit").Inc()
		return doc.Clean()
	default:
		metrics.FulltextCacheTotal.WithLabelValues("miss").Inc()
	}

	doc, err = r.fetcher.Fetch(ctx, id)
	if err != nil {
		metrics.FulltextFetchTotal.WithLabelValues("error").Inc()
		log.Warn("Full-text fetch failed, continuing without it", zap.Error(err))
		return law.StructuredDocument{CelexID: id}
	}
	metrics.FulltextFetchTotal.WithLabelValues("ok").Inc()
	doc.CelexID = id

	if err := r.cache.Put(ctx, doc); err != nil {
		log.Warn("Full-text cache write failed", zap.Error(err))
	}
	return doc.Clean()
}
