package eulex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/app"
	"github.com/kailas-cloud/eulex/internal/config"
	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/usecase/pipeline"
)

// Internal interfaces, swapped for mocks in tests.
type pipelineUseCase interface {
	Candidates(ctx context.Context, query string) ([]pipeline.Candidate, error)
	Retrieve(ctx context.Context, question string) (pipeline.Result, error)
	Answer(ctx context.Context, question string) (pipeline.Answer, error)
}

type indexOpener interface {
	Open(ctx context.Context) error
}

// Client is the eulex SDK entry point. Safe for concurrent use.
type Client struct {
	pipeline  pipelineUseCase
	index     indexOpener
	healthSvc healthUseCase
	usageSvc  usageUseCase
	closer    func()
	obs       *observer
}

// New loads the corpus, opens the cache and assembles the pipeline.
// The provided context bounds corpus loading and the cache readiness check.
// Lexical indexes are built on the first query or by Open.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{driver: config.DriverBolt}
	for _, o := range opts {
		o.apply(cc)
	}
	if cc.corpusPath == "" {
		return nil, errors.New("eulex: corpus path required (use WithCorpus)")
	}
	if cc.embedder == nil && cc.embedding.apiKey == "" && cc.embedding.baseURL == "" {
		return nil, errors.New("eulex: embedder required (use WithEmbedder or WithEmbeddingProvider)")
	}

	cfg := cc.toConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("eulex: %w", err)
	}

	logger := cc.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	var appOpts []app.Option
	if cc.embedder != nil {
		appOpts = append(appOpts, app.WithEmbedder(&embedderAdapter{inner: cc.embedder}))
	}
	a, err := app.Build(ctx, cfg, logger, appOpts...)
	if err != nil {
		return nil, fmt.Errorf("eulex: %w", err)
	}

	return &Client{
		pipeline:  a.Pipeline,
		index:     a.Retriever,
		healthSvc: a.Health,
		usageSvc:  a.Usage,
		closer:    a.Close,
		obs:       obs,
	}, nil
}

func (cc *clientConfig) toConfig() config.Config {
	cfg := config.Config{
		Corpus: config.CorpusConfig{Path: cc.corpusPath},
		Index:  config.IndexConfig{Dir: cc.indexDir},
		Cache: config.CacheConfig{
			Driver:   cc.driver,
			Path:     cc.cachePath,
			Addrs:    cc.addrs,
			Password: cc.password,
		},
		Fulltext: config.FulltextConfig{BaseURL: cc.fulltextURL},
		Embedding: config.EmbeddingConfig{
			Provider: "sdk",
			BaseURL:  cc.embedding.baseURL,
			APIKey:   cc.embedding.apiKey,
			Model:    cc.embedding.model,
		},
		LLM: config.LLMConfig{
			BaseURL:      cc.llm.baseURL,
			APIKey:       cc.llm.apiKey,
			Model:        cc.llm.model,
			RewriteQuery: cc.rewrite,
		},
		Retrieval: config.RetrievalConfig{TopK: cc.topK, MinScore: cc.minScore},
		Semantic:  config.SemanticConfig{Threshold: cc.threshold},
		Aggregate: config.AggregateConfig{MinWords: cc.minWords, MaxWords: cc.maxWords},
	}
	if cc.dailyTokens > 0 {
		cfg.Embedding.Budget.DailyTokenLimit = cc.dailyTokens
		if cc.rejectOverUse {
			cfg.Embedding.Budget.Action = "reject"
		}
	}
	return cfg
}

// Close releases the cache store.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Open builds or loads the lexical indexes ahead of the first query.
func (c *Client) Open(ctx context.Context) (err error) {
	defer c.obs.track("open")(&err)

	if err = c.index.Open(ctx); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	return nil
}

// Search returns the candidate laws for query without fetching full texts.
// The query is searched as given.
func (c *Client) Search(ctx context.Context, query string) (_ []Candidate, err error) {
	defer c.obs.track("search")(&err)

	cands, err := c.pipeline.Candidates(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toCandidates(cands), nil
}

// Context retrieves the law context for question.
func (c *Client) Context(ctx context.Context, question string) (_ LawContext, err error) {
	defer c.obs.track("context")(&err)

	res, err := c.pipeline.Retrieve(ctx, question)
	if err != nil {
		return LawContext{}, fmt.Errorf("context: %w", err)
	}
	return toLawContext(res), nil
}

// Ask retrieves the law context for question and answers it with the chat
// model. Without WithLLM it fails with ErrLLMProviderError.
func (c *Client) Ask(ctx context.Context, question string) (_ Answer, err error) {
	defer c.obs.track("ask")(&err)

	ans, err := c.pipeline.Answer(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}
	return Answer{LawContext: toLawContext(ans.Result), Text: ans.Text}, nil
}

func toCandidates(in []pipeline.Candidate) []Candidate {
	out := make([]Candidate, len(in))
	for i, c := range in {
		out[i] = Candidate{
			CelexID:         c.CelexID,
			Title:           c.Title,
			Score:           c.Score,
			Rank:            c.Rank,
			EurovocConcepts: c.EurovocConcepts,
		}
	}
	return out
}

func toLawContext(r pipeline.Result) LawContext {
	passages := make([]Passage, len(r.Context.Passages))
	for i, p := range r.Context.Passages {
		passages[i] = Passage{
			CelexID:  p.CelexID,
			LawTitle: p.LawTitle,
			ID:       p.ID,
			Kind:     string(p.Kind),
			Text:     p.Text,
			Score:    p.Score,
		}
	}
	return LawContext{
		Query:      r.Query,
		Candidates: toCandidates(r.Candidates),
		Passages:   passages,
		Text:       r.Context.Text,
		TotalWords: r.Context.TotalWords,
	}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the caller's batch endpoint when it has one.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts) //nolint:wrapcheck // already wrapped per text
	}
	vecs, tokens, err := be.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed batch: %w", err)
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs, PromptTokens: tokens, TotalTokens: tokens}, nil
}
