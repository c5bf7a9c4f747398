// Package lexical implements keyword retrieval over the legal corpus with two
// BM25 indexes, one over document bodies and one over titles.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/corpus"
	"github.com/kailas-cloud/eulex/internal/domain"
)

// Index file names under the index directory.
const (
	BodyIndexFile  = "eur_lex.db"
	TitleIndexFile = "eur_lex_titles.db"
)

// RankedResult is one hit from one index. Rank is 0-based.
type RankedResult struct {
	DocID string
	Rank  int
	Score float64
}

// Results holds the per-index rankings for one query.
type Results struct {
	Body  []RankedResult
	Title []RankedResult
}

// Retriever owns the body and title indexes of one corpus.
// Indexes are built or loaded once, on Open or on the first Search.
type Retriever struct {
	corpus *corpus.Corpus
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	ready bool
	body  *Index
	title *Index
}

// NewRetriever creates a retriever over c. dir is where indexes are
// persisted; an empty dir keeps them in memory only.
func NewRetriever(c *corpus.Corpus, dir string, logger *zap.Logger) *Retriever {
	return &Retriever{corpus: c, dir: dir, logger: logger}
}

// Open builds or loads both indexes. Safe to call more than once.
func (r *Retriever) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		return nil
	}
	if r.corpus == nil || r.corpus.Len() == 0 {
		return fmt.Errorf("open retriever: %w", domain.ErrCorpusUnavailable)
	}

	docs := r.corpus.Documents()
	ids := make([]string, len(docs))
	bodies := make([]string, len(docs))
	titles := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.CelexID
		bodies[i] = d.Text
		titles[i] = d.Title
	}

	body, err := r.openIndex(ctx, BodyIndexFile, ids, bodies)
	if err != nil {
		return err
	}
	title, err := r.openIndex(ctx, TitleIndexFile, ids, titles)
	if err != nil {
		return err
	}

	r.body, r.title, r.ready = body, title, true
	return nil
}

func (r *Retriever) openIndex(ctx context.Context, name string, ids, texts []string) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	fp := fingerprint(ids, texts)

	if r.dir == "" {
		return r.build(name, ids, texts), nil
	}
	path := filepath.Join(r.dir, name)

	idx, stored, err := loadIndex(path)
	switch {
	case err == nil && stored == fp:
		r.logger.Info("Lexical index loaded",
			zap.String("index", name), zap.Int("documents", idx.Len()), zap.Int("terms", idx.Terms()))
		return idx, nil
	case err == nil:
		r.logger.Warn("Lexical index is stale, rebuilding", zap.String("index", name))
	case errors.Is(err, errNoIndex):
	default:
		r.logger.Warn("Lexical index unreadable, rebuilding", zap.String("index", name), zap.Error(err))
	}

	idx = r.build(name, ids, texts)
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	if err := saveIndex(path, idx, fp); err != nil {
		return nil, fmt.Errorf("persist %s: %w", name, err)
	}
	return idx, nil
}

func (r *Retriever) build(name string, ids, texts []string) *Index {
	start := time.Now()
	idx := Build(ids, texts)
	r.logger.Info("Lexical index built",
		zap.String("index", name),
		zap.Int("documents", idx.Len()),
		zap.Int("terms", idx.Terms()),
		zap.Duration("took", time.Since(start)),
	)
	return idx
}

// Search sanitizes query and runs it against both indexes, returning up to
// depth results from each.
func (r *Retriever) Search(ctx context.Context, query string, depth int) (Results, error) {
	if err := r.Open(ctx); err != nil {
		return Results{}, err
	}

	tokens := Tokenize(Sanitize(query))
	return Results{
		Body:  r.body.Search(tokens, depth),
		Title: r.title.Search(tokens, depth),
	}, nil
}

// Corpus returns the corpus the retriever was built over.
func (r *Retriever) Corpus() *corpus.Corpus { return r.corpus }

func fingerprint(ids, texts []string) uint64 {
	h := fnv.New64a()
	for i := range ids {
		_, _ = h.Write([]byte(ids[i]))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(texts[i]))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
