// Package config loads the per-environment YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// Cache drivers.
const (
	DriverBolt   = "bolt"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Config holds the eulex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Cache     CacheConfig     `yaml:"cache"`
	Fulltext  FulltextConfig  `yaml:"fulltext"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Semantic  SemanticConfig  `yaml:"semantic"`
	Aggregate AggregateConfig `yaml:"aggregate"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig points at the corpus files: a parquet or JSONL file, or a
// directory holding them.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig holds lexical index settings.
type IndexConfig struct {
	Dir string `yaml:"dir"` // empty keeps the indexes in memory
}

// CacheConfig selects the full-text and embedding cache backend.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // bolt, redis, valkey (default: bolt)
	Path             string   `yaml:"path"`   // bolt file
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Network reports whether the driver talks to a Redis-compatible server.
func (c CacheConfig) Network() bool {
	return c.Driver == DriverRedis || c.Driver == DriverValkey
}

// FulltextConfig holds EUR-Lex fetch settings.
type FulltextConfig struct {
	BaseURL           string  `yaml:"base_url"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	BreakerFailures   uint32  `yaml:"breaker_failures"`
	BreakerOpenSec    int     `yaml:"breaker_open_sec"`
	Concurrency       int     `yaml:"concurrency"`
	UserAgent         string  `yaml:"user_agent"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string       `yaml:"provider"` // label for metrics and budget keys
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Model       string       `yaml:"model"`
	Dimensions  int          `yaml:"dimensions"`
	TimeoutSec  int          `yaml:"timeout_sec"`
	Instruction string       `yaml:"instruction"` // prefix for every embedded text
	MaxBatch    int          `yaml:"max_batch"`
	MemoSize    int          `yaml:"memo_size"`
	Persist     *bool        `yaml:"persist"` // persistent embedding cache (default: true)
	Budget      BudgetConfig `yaml:"budget"`
}

// PersistEnabled reports whether embeddings are cached in the store.
func (c EmbeddingConfig) PersistEnabled() bool {
	return c.Persist == nil || *c.Persist
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (c BudgetConfig) Enabled() bool {
	return c.DailyTokenLimit > 0 || c.MonthlyTokenLimit > 0
}

// LLMConfig holds chat model settings.
type LLMConfig struct {
	APIKey        string  `yaml:"api_key"` // empty disables rewriting and answering
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	RewriteQuery  *bool   `yaml:"rewrite_query"` // default: true
	RewritePrompt string  `yaml:"rewrite_prompt"`
	AnswerPrompt  string  `yaml:"answer_prompt"`
	Referer       string  `yaml:"referer"`
	Title         string  `yaml:"title"`
}

// Enabled reports whether a chat model is configured.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// RewriteRequested reports whether rewrite_query is on or unset.
func (c LLMConfig) RewriteRequested() bool {
	return c.RewriteQuery == nil || *c.RewriteQuery
}

// RewriteEnabled reports whether questions are rewritten before search.
func (c LLMConfig) RewriteEnabled() bool {
	return c.Enabled() && c.RewriteRequested()
}

// Headers returns the extra request headers for OpenRouter attribution.
func (c LLMConfig) Headers() map[string]string {
	h := make(map[string]string, 2)
	if c.Referer != "" {
		h["HTTP-Referer"] = c.Referer
	}
	if c.Title != "" {
		h["X-Title"] = c.Title
	}
	return h
}

// RetrievalConfig holds lexical retrieval, fusion and threshold settings.
type RetrievalConfig struct {
	Depth         int      `yaml:"depth"`
	FusionI       float64  `yaml:"fusion_i"`
	TopK          int      `yaml:"top_k"`
	MinScore      *float64 `yaml:"min_score"` // unset: 0.5; 0 keeps every fused candidate
	MinCandidates int      `yaml:"min_candidates"`
}

// MinFusedScore returns min_score, or the default when it is unset.
func (c RetrievalConfig) MinFusedScore() float64 {
	if c.MinScore == nil {
		return domain.DefaultMinFusedScore
	}
	return *c.MinScore
}

// SemanticConfig holds passage filter settings.
type SemanticConfig struct {
	Threshold   *float64 `yaml:"threshold"` // unset: 0.5
	Concurrency int      `yaml:"concurrency"`
}

// PassageThreshold returns threshold, or the default when it is unset.
func (c SemanticConfig) PassageThreshold() float64 {
	if c.Threshold == nil {
		return domain.DefaultPassageThreshold
	}
	return *c.Threshold
}

// AggregateConfig holds context aggregation settings.
type AggregateConfig struct {
	MinWords int `yaml:"min_words"` // -1 disables the floor
	MaxWords int `yaml:"max_words"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies
// defaults and validation.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = DriverBolt
	}
	if c.Cache.Driver == DriverBolt && c.Cache.Path == "" {
		c.Cache.Path = filepath.Join("data", "cache", "laws.db")
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Fulltext.TimeoutSec <= 0 {
		c.Fulltext.TimeoutSec = 30
	}
	if c.Fulltext.RequestsPerSecond == 0 {
		c.Fulltext.RequestsPerSecond = 2
	}
	if c.Fulltext.Burst <= 0 {
		c.Fulltext.Burst = 1
	}
	if c.Fulltext.BreakerFailures == 0 {
		c.Fulltext.BreakerFailures = 5
	}
	if c.Fulltext.BreakerOpenSec <= 0 {
		c.Fulltext.BreakerOpenSec = 30
	}
	if c.Fulltext.Concurrency <= 0 {
		c.Fulltext.Concurrency = 4
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "jina"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = domain.DefaultEmbeddingModel
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.MemoSize <= 0 {
		c.Embedding.MemoSize = domain.DefaultEmbeddingMemoSize
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "qwen/qwen3-30b-a3b:free"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}

	if c.Retrieval.Depth <= 0 {
		c.Retrieval.Depth = domain.DefaultRetrievalDepth
	}
	if c.Retrieval.FusionI <= 0 {
		c.Retrieval.FusionI = domain.DefaultFusionConstant
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = domain.DefaultFusionTopK
	}
	if c.Retrieval.MinCandidates <= 0 {
		c.Retrieval.MinCandidates = domain.DefaultMinCandidates
	}

	if c.Semantic.Concurrency <= 0 {
		c.Semantic.Concurrency = 4
	}

	if c.Aggregate.MinWords == 0 {
		c.Aggregate.MinWords = domain.DefaultMinPassageWords
	}
	if c.Aggregate.MaxWords <= 0 {
		c.Aggregate.MaxWords = domain.DefaultMaxContextWords
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	switch c.Cache.Driver {
	case DriverBolt:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the bolt driver")
		}
	case DriverRedis, DriverValkey:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the %s driver", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be \"bolt\", \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	switch c.Embedding.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action,
		)
	}
	if s := c.Retrieval.MinFusedScore(); s < 0 {
		return fmt.Errorf("retrieval.min_score must not be negative, got %v", s)
	}
	if t := c.Semantic.PassageThreshold(); t < -1 || t > 1 {
		return fmt.Errorf("semantic.threshold must be within [-1, 1], got %v", t)
	}
	if c.Aggregate.MinWords > c.Aggregate.MaxWords {
		return fmt.Errorf("aggregate.min_words (%d) exceeds aggregate.max_words (%d)",
			c.Aggregate.MinWords, c.Aggregate.MaxWords)
	}
	return nil
}

// Seconds converts a whole-second setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
