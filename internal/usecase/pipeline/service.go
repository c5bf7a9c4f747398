// Package pipeline runs one legal question through retrieval: lexical
// search, rank fusion, thresholding, full-text resolution, semantic passage
// filtering and context aggregation, optionally framed by LLM query
// rewriting and answer generation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/lexical"
	"github.com/kailas-cloud/eulex/internal/logger"
	"github.com/kailas-cloud/eulex/internal/metrics"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
	"github.com/kailas-cloud/eulex/internal/usecase/fusion"
	"github.com/kailas-cloud/eulex/internal/usecase/threshold"
)

// Stage labels for metrics and logs.
const (
	StageRewrite   = "rewrite"
	StageSearch    = "search"
	StageFusion    = "fusion"
	StageFulltext  = "fulltext"
	StageSemantic  = "semantic"
	StageAggregate = "aggregate"
	StageAnswer    = "answer"
)

// Config holds the retrieval knobs. Zero values fall back to the domain
// defaults; MinScore falls back only when nil, so 0 disables the filter.
type Config struct {
	Depth         int
	FusionI       float64
	TopK          int
	MinScore      *float64
	MinCandidates int
	// RewriteQuery sends the question through the assistant before search.
	RewriteQuery bool
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Depth <= 0 {
		c.Depth = domain.DefaultRetrievalDepth
	}
	if c.FusionI <= 0 {
		c.FusionI = domain.DefaultFusionConstant
	}
	if c.TopK <= 0 {
		c.TopK = domain.DefaultFusionTopK
	}
	if c.MinScore == nil {
		score := domain.DefaultMinFusedScore
		c.MinScore = &score
	}
	if c.MinCandidates <= 0 {
		c.MinCandidates = domain.DefaultMinCandidates
	}
}

// Candidate is one law that passed the score threshold.
type Candidate struct {
	CelexID         string   `json:"celex_id"`
	Title           string   `json:"title"`
	Score           float64  `json:"score"`
	Rank            int      `json:"rank"`
	EurovocConcepts []string `json:"eurovoc_concepts,omitempty"`
}

// Result is the output of one retrieval.
type Result struct {
	// Query is the text actually searched, after an optional rewrite.
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates"`
	// Titles of the candidates, in candidate order.
	Titles  []string          `json:"titles"`
	Context aggregate.Context `json:"context"`
}

// Answer is a retrieval plus the generated reply.
type Answer struct {
	Result
	Text string `json:"answer"`
}

// Service wires the stages together. Safe for concurrent use when its
// collaborators are.
type Service struct {
	search    Searcher
	catalog   Catalog
	resolver  Resolver
	filter    PassageFilter
	aggr      Aggregator
	assistant Assistant
	cfg       Config
	logger    *zap.Logger
}

// New creates a pipeline service. assistant may be nil when neither
// rewriting nor answering is needed.
func New(
	search Searcher, catalog Catalog, resolver Resolver,
	filter PassageFilter, aggr Aggregator, assistant Assistant,
	cfg Config, logger *zap.Logger,
) *Service {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		search:    search,
		catalog:   catalog,
		resolver:  resolver,
		filter:    filter,
		aggr:      aggr,
		assistant: assistant,
		cfg:       cfg,
		logger:    logger,
	}
}

// Candidates runs the lexical half of the pipeline: search both indexes,
// fuse and threshold. query is searched as given.
func (s *Service) Candidates(ctx context.Context, query string) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	start := time.Now()
	res, err := s.search.Search(ctx, query, s.cfg.Depth)
	metrics.ObserveStage(StageSearch, start)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	start = time.Now()
	fused := fusion.Fuse([][]fusion.Ranked{ranked(res.Body), ranked(res.Title)}, s.cfg.FusionI, s.cfg.TopK)
	set := threshold.Apply(fused, *s.cfg.MinScore, s.cfg.MinCandidates)
	metrics.ObserveStage(StageFusion, start)
	metrics.PipelineCandidates.Observe(float64(len(set)))

	titles := s.catalog.Titles(set.IDs())
	out := make([]Candidate, len(set))
	for i, r := range set {
		c := Candidate{CelexID: r.DocID, Title: titles[r.DocID], Score: r.Score, Rank: r.Rank}
		if doc, ok := s.catalog.Get(r.DocID); ok {
			c.EurovocConcepts = doc.EurovocConcepts
		}
		out[i] = c
	}

	logger.FromContextOr(ctx, s.logger).Debug("Candidates selected",
		zap.Int("body_hits", len(res.Body)),
		zap.Int("title_hits", len(res.Title)),
		zap.Int("fused", len(fused)),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}

// Retrieve turns a question into the rendered legal context and the
// candidate titles. Any stage failure aborts the query.
func (s *Service) Retrieve(ctx context.Context, question string) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, domain.ErrEmptyQuery
	}
	log := logger.FromContextOr(ctx, s.logger)

	query := question
	if s.cfg.RewriteQuery && s.assistant != nil {
		start := time.Now()
		rewritten, err := s.assistant.RewriteQuery(ctx, question)
		metrics.ObserveStage(StageRewrite, start)
		if err != nil {
			return Result{}, err
		}
		query = rewritten
	}

	candidates, err := s.Candidates(ctx, query)
	if err != nil {
		return Result{}, err
	}

	ids := make([]string, len(candidates))
	titles := make([]string, len(candidates))
	titleByID := make(map[string]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.CelexID
		titles[i] = c.Title
		if c.Title != "" {
			titleByID[c.CelexID] = c.Title
		}
	}

	start := time.Now()
	docs, err := s.resolver.Resolve(ctx, ids)
	metrics.ObserveStage(StageFulltext, start)
	if err != nil {
		return Result{}, err
	}

	start = time.Now()
	scored, err := s.filter.Filter(ctx, query, docs)
	metrics.ObserveStage(StageSemantic, start)
	if err != nil {
		return Result{}, fmt.Errorf("semantic filter: %w", err)
	}

	start = time.Now()
	agg := s.aggr.Aggregate(scored, titleByID)
	metrics.ObserveStage(StageAggregate, start)

	log.Info("Context assembled",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("documents_kept", len(scored)),
		zap.Int("passages", len(agg.Passages)),
		zap.Int("total_words", agg.TotalWords),
	)

	return Result{Query: query, Candidates: candidates, Titles: titles, Context: agg}, nil
}

// Answer retrieves the context for question and asks the assistant to
// answer it. The original question, not the rewrite, goes into the answer
// prompt.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	if s.assistant == nil {
		return Answer{}, fmt.Errorf("%w: no assistant configured", domain.ErrLLMProviderError)
	}
	res, err := s.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	start := time.Now()
	text, err := s.assistant.Answer(ctx, strings.TrimSpace(question), res.Context.Text)
	metrics.ObserveStage(StageAnswer, start)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Result: res, Text: text}, nil
}

func ranked(hits []lexical.RankedResult) []fusion.Ranked {
	out := make([]fusion.Ranked, len(hits))
	for i, h := range hits {
		out[i] = fusion.Ranked{DocID: h.DocID, Rank: h.Rank}
	}
	return out
}
