package fulltext

import (
	"context"

	"github.com/kailas-cloud/eulex/internal/domain/law"
)

// Cache is the persistent full-text store consumed by the resolver.
// Get reports a miss with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, celexID string) (doc law.StructuredDocument, ok bool, err error)
	Put(ctx context.Context, doc law.StructuredDocument) error
}

// Fetcher downloads and parses a law that is not cached yet.
type Fetcher interface {
	Fetch(ctx context.Context, celexID string) (law.StructuredDocument, error)
}
