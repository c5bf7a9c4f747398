package eulex

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type providerConfig struct {
	baseURL string
	apiKey  string
	model   string
}

type clientConfig struct {
	corpusPath string
	indexDir   string

	driver    string // "bolt", "valkey" or "redis"
	cachePath string
	addrs     []string
	password  string

	embedder    Embedder
	embedding   providerConfig
	llm         providerConfig
	rewrite     *bool
	fulltextURL string

	topK          int
	minScore      *float64
	threshold     *float64
	maxWords      int
	minWords      int
	dailyTokens   int64
	rejectOverUse bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithCorpus sets the corpus location: a parquet or JSONL file, or a
// directory holding them. Required.
func WithCorpus(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpusPath = path
	})
}

// WithIndexDir persists the lexical indexes under dir so later clients
// skip the rebuild. Indexes stay in memory by default.
func WithIndexDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDir = dir
	})
}

// WithBoltCache keeps full texts and embeddings in a local bbolt file.
func WithBoltCache(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bolt"
		c.cachePath = path
	})
}

// WithValkey keeps full texts and embeddings in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis keeps full texts and embeddings in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets a custom text embedding provider. It takes precedence
// over WithEmbeddingProvider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEmbeddingProvider uses an OpenAI-compatible /embeddings endpoint.
func WithEmbeddingProvider(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedding = providerConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithLLM uses an OpenAI-compatible chat endpoint for question rewriting
// and answering.
func WithLLM(baseURL, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.llm = providerConfig{baseURL: baseURL, apiKey: apiKey, model: model}
	})
}

// WithQueryRewrite turns question rewriting on or off. On by default when
// a chat model is configured.
func WithQueryRewrite(enabled bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.rewrite = &enabled
	})
}

// WithFulltextURL overrides the EUR-Lex base URL full texts are fetched from.
func WithFulltextURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.fulltextURL = url
	})
}

// WithTopK sets how many fused candidates are considered. Default: 10.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithMinScore sets the fused score a candidate needs. Default: 0.5.
// Zero keeps every fused candidate.
func WithMinScore(score float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = &score
	})
}

// WithPassageThreshold sets the cosine similarity a passage needs. Default: 0.5.
func WithPassageThreshold(threshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = &threshold
	})
}

// WithContextWords sets the passage word floor and the context word cap.
// Defaults: 20 and 10000. A negative floor disables it.
func WithContextWords(minWords, maxWords int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minWords = minWords
		c.maxWords = maxWords
	})
}

// WithDailyTokenBudget limits embedding tokens per UTC day. With reject
// set, calls over the budget fail with ErrEmbeddingQuotaExceeded;
// otherwise they are only logged.
func WithDailyTokenBudget(tokens int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = tokens
		c.rejectOverUse = reject
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
