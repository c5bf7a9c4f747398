package pipeline

import (
	"context"

	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/lexical"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
)

// Searcher runs a sanitized query against the body and title indexes.
type Searcher interface {
	Search(ctx context.Context, query string, depth int) (lexical.Results, error)
}

// Catalog looks up corpus metadata for candidate ids.
type Catalog interface {
	Get(id string) (law.Document, bool)
	Titles(ids []string) map[string]string
}

// Resolver maps candidate ids to their structured full text, in order.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) ([]law.StructuredDocument, error)
}

// PassageFilter keeps the passages semantically close to the query.
type PassageFilter interface {
	Filter(ctx context.Context, query string, docs []law.StructuredDocument) ([]law.ScoredDocument, error)
}

// Aggregator applies the word floor and cap and renders the context.
type Aggregator interface {
	Aggregate(docs []law.ScoredDocument, titles map[string]string) aggregate.Context
}

// Assistant rewrites questions and answers them from a rendered context.
type Assistant interface {
	RewriteQuery(ctx context.Context, question string) (string, error)
	Answer(ctx context.Context, question, lawContext string) (string, error)
}
