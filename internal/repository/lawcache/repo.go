// Package lawcache stores parsed full texts of laws keyed by CELEX id.
// Entries are written once and never evicted.
package lawcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/db"
	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/lawjson"
)

var keyPrefix = domain.KeyPrefix + "law:"

// store is the consumer interface for the law cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo is the persistent full-text cache.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a law cache repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Key returns the storage key for a CELEX id.
func Key(celexID string) string {
	return keyPrefix + celexID
}

// Get returns the cached document for celexID. Missing, empty and
// undecodable entries are all reported as a miss; store failures other than
// a missing key are returned.
func (r *Repo) Get(ctx context.Context, celexID string) (law.StructuredDocument, bool, error) {
	data, err := r.store.Get(ctx, Key(celexID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return law.StructuredDocument{}, false, nil
		}
		return law.StructuredDocument{}, false, fmt.Errorf("get law %s: %w", celexID, err)
	}

	var doc law.StructuredDocument
	if err := lawjson.Decode(data, &doc); err != nil {
		r.logger.Warn("Discarding undecodable cached law",
			zap.String("celex_id", celexID), zap.Int("bytes", len(data)), zap.Error(err))
		return law.StructuredDocument{}, false, nil
	}
	if doc.IsEmpty() {
		return law.StructuredDocument{}, false, nil
	}
	if doc.CelexID == "" {
		doc.CelexID = celexID
	}
	return doc, true, nil
}

// Put stores doc under its CELEX id. Empty documents are not stored.
func (r *Repo) Put(ctx context.Context, doc law.StructuredDocument) error {
	if doc.CelexID == "" {
		return fmt.Errorf("put law: missing celex id")
	}
	if doc.IsEmpty() {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal law %s: %w", doc.CelexID, err)
	}
	if err := r.store.Set(ctx, Key(doc.CelexID), data); err != nil {
		return fmt.Errorf("put law %s: %w", doc.CelexID, err)
	}
	return nil
}
