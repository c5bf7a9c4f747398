// Package app assembles the retrieval pipeline from configuration. It is
// the composition root shared by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/config"
	"github.com/kailas-cloud/eulex/internal/corpus"
	"github.com/kailas-cloud/eulex/internal/db"
	dbBolt "github.com/kailas-cloud/eulex/internal/db/bolt"
	dbRedis "github.com/kailas-cloud/eulex/internal/db/redis"
	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/lexical"
	"github.com/kailas-cloud/eulex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/eulex/internal/repository/budget"
	"github.com/kailas-cloud/eulex/internal/repository/embcache"
	"github.com/kailas-cloud/eulex/internal/repository/lawcache"
	"github.com/kailas-cloud/eulex/internal/transport/eurlex"
	"github.com/kailas-cloud/eulex/internal/transport/openai"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
	embeddinguc "github.com/kailas-cloud/eulex/internal/usecase/embedding"
	"github.com/kailas-cloud/eulex/internal/usecase/fulltext"
	healthuc "github.com/kailas-cloud/eulex/internal/usecase/health"
	"github.com/kailas-cloud/eulex/internal/usecase/llm"
	"github.com/kailas-cloud/eulex/internal/usecase/pipeline"
	"github.com/kailas-cloud/eulex/internal/usecase/prompt"
	"github.com/kailas-cloud/eulex/internal/usecase/semantic"
	usageuc "github.com/kailas-cloud/eulex/internal/usecase/usage"
)

// App holds the assembled components.
type App struct {
	Config     config.Config
	Corpus     *corpus.Corpus
	Retriever  *lexical.Retriever
	Store      db.Store
	Aggregator *aggregate.Aggregator
	Pipeline   *pipeline.Service
	Health     *healthuc.Service
	Usage      *usageuc.Service
	Budget     *embeddinguc.BudgetTracker
}

// Option replaces a component Build would otherwise create from config.
type Option func(*overrides)

type overrides struct {
	embedder  domain.Embedder
	fetcher   fulltext.Fetcher
	assistant pipeline.Assistant
}

// WithEmbedder replaces the OpenAI-compatible embedding provider. The cache,
// memo and budget decorators still wrap it.
func WithEmbedder(e domain.Embedder) Option {
	return func(o *overrides) { o.embedder = e }
}

// WithFetcher replaces the EUR-Lex client.
func WithFetcher(f fulltext.Fetcher) Option {
	return func(o *overrides) { o.fetcher = f }
}

// WithAssistant replaces the chat model service, enabling rewriting and
// answering regardless of llm.api_key.
func WithAssistant(a pipeline.Assistant) Option {
	return func(o *overrides) { o.assistant = a }
}

// Build loads the corpus, opens the cache store and wires every stage.
// The lexical indexes are opened lazily; call Retriever.Open to warm them.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var ov overrides
	for _, o := range opts {
		o(&ov)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	c, err := corpus.Load(ctx, cfg.Corpus.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	retriever := lexical.NewRetriever(c, cfg.Index.Dir, logger)

	store, counters, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	logger.Info("Cache store ready", zap.String("driver", cfg.Cache.Driver))

	a := &App{
		Config:    cfg,
		Corpus:    c,
		Retriever: retriever,
		Store:     store,
	}

	// Budget counters persist only on a network store; bolt keeps them in memory.
	if cfg.Embedding.Budget.Enabled() {
		action, err := embeddinguc.ParseBudgetAction(cfg.Embedding.Budget.Action)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("budget: %w", err)
		}
		a.Budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider,
			cfg.Embedding.Budget.DailyTokenLimit, cfg.Embedding.Budget.MonthlyTokenLimit,
			action, logger,
		)
		if counters != nil {
			a.Budget.WithStore(ctx, budgetrepo.New(counters, 0, 0))
		}
	}

	// Pass nil interfaces, not typed nil pointers, when the budget is off.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if a.Budget != nil {
		budgetChecker = a.Budget
		budgetReader = a.Budget
	}

	base := ov.embedder
	if base == nil {
		base = openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Timeout:    config.Seconds(cfg.Embedding.TimeoutSec),
			Logger:     logger,
		})
	}
	var embeddingChecker healthuc.ProviderChecker
	if hc, ok := base.(domain.HealthChecker); ok {
		embeddingChecker = hc
	}
	embedder, err := buildEmbedder(base, store, cfg.Embedding, budgetChecker, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	assistant := ov.assistant
	var llmChecker healthuc.ProviderChecker
	if assistant == nil && cfg.LLM.Enabled() {
		rewriteTpl, err := prompt.Load(cfg.LLM.RewritePrompt, "rewrite", os.ReadFile, prompt.SlotInitialQuery)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("rewrite prompt: %w", err)
		}
		answerTpl, err := prompt.Load(cfg.LLM.AnswerPrompt, "answer", os.ReadFile,
			prompt.SlotUserQuery, prompt.SlotSummarizedLaws)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("answer prompt: %w", err)
		}
		chat := openai.NewChat(&openai.ChatConfig{
			Config: openai.Config{
				APIKey:   cfg.LLM.APIKey,
				BaseURL:  cfg.LLM.BaseURL,
				Model:    cfg.LLM.Model,
				Provider: "llm",
				Timeout:  config.Seconds(cfg.LLM.TimeoutSec),
				Logger:   logger,
			},
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Headers:     cfg.LLM.Headers(),
		})
		assistant = llm.New(chat, rewriteTpl, answerTpl, logger)
		llmChecker = chat
	}

	fetcher := ov.fetcher
	if fetcher == nil {
		fetcher = eurlex.NewClient(eurlex.Config{
			BaseURL:           cfg.Fulltext.BaseURL,
			Timeout:           config.Seconds(cfg.Fulltext.TimeoutSec),
			RequestsPerSecond: cfg.Fulltext.RequestsPerSecond,
			Burst:             cfg.Fulltext.Burst,
			BreakerFailures:   cfg.Fulltext.BreakerFailures,
			BreakerOpenFor:    config.Seconds(cfg.Fulltext.BreakerOpenSec),
			UserAgent:         cfg.Fulltext.UserAgent,
		}, logger)
	}
	resolver := fulltext.New(lawcache.New(store, logger), fetcher, cfg.Fulltext.Concurrency, logger)

	rewrite := assistant != nil && cfg.LLM.RewriteRequested()

	a.Aggregator = aggregate.New(cfg.Aggregate.MinWords, cfg.Aggregate.MaxWords, logger)
	a.Pipeline = pipeline.New(
		retriever, c, resolver,
		semantic.New(embedder, cfg.Semantic.PassageThreshold(), cfg.Semantic.Concurrency, logger),
		a.Aggregator,
		assistant,
		pipeline.Config{
			Depth:         cfg.Retrieval.Depth,
			FusionI:       cfg.Retrieval.FusionI,
			TopK:          cfg.Retrieval.TopK,
			MinScore:      cfg.Retrieval.MinScore,
			MinCandidates: cfg.Retrieval.MinCandidates,
			RewriteQuery:  rewrite,
		},
		logger,
	)
	a.Health = healthuc.New(retriever, store, embeddingChecker, llmChecker)
	a.Usage = usageuc.New(budgetReader)

	logger.Info("Pipeline assembled",
		zap.Int("laws", c.Len()),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("llm", assistant != nil),
		zap.Bool("rewrite", rewrite),
		zap.Bool("budget", a.Budget != nil),
	)
	return a, nil
}

// Close releases the cache store.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

// openStore opens the configured cache backend. counters is non-nil only
// for network backends.
func openStore(ctx context.Context, cfg config.CacheConfig) (db.Store, db.CounterStore, error) {
	if !cfg.Network() {
		s, err := dbBolt.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt cache: %w", err)
		}
		return s, nil, nil
	}

	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s cache: %w", cfg.Driver, err)
	}
	if err := s.WaitForReady(ctx, config.Seconds(cfg.ReadinessTimeout)); err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	return s, s, nil
}

// buildEmbedder assembles the decorator chain:
// provider -> persistent cache -> memo -> metered -> instruction.
func buildEmbedder(
	base domain.Embedder,
	store db.KVStore,
	cfg config.EmbeddingConfig,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) (domain.Embedder, error) {
	embedder := base
	if cfg.PersistEnabled() {
		embedder = embcache.New(embedder, store, cfg.Model, metrics.EmbeddingCacheTotal, logger)
	}

	memo, err := embeddinguc.NewMemoEmbedder(embedder, cfg.MemoSize)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	var out domain.Embedder = embeddinguc.NewMetered(memo, cfg.Provider, cfg.Model, budget, cfg.MaxBatch, logger)

	// Instruction prefix is outermost so cache keys include it.
	if cfg.Instruction != "" {
		out = domain.NewInstructionEmbedder(out, cfg.Instruction)
	}
	return out, nil
}
