package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/eulex/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func validConfig() Config {
	cfg := Config{Corpus: CorpusConfig{Path: "data/laws.parquet"}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingCorpus(t *testing.T) {
	cfg := validConfig()
	cfg.Corpus.Path = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing corpus path")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	for _, driver := range []string{DriverRedis, DriverValkey} {
		t.Run(driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.Driver = driver

			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error for missing cache addrs")
			}
		})
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Driver = "memcached"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown cache driver")
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := validConfig()
	cfg.Semantic.Threshold = floatPtr(1.5)

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestValidate_WordBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Aggregate.MinWords = 500
	cfg.Aggregate.MaxWords = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_words above max_words")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Cache.Driver != DriverBolt {
		t.Errorf("expected bolt driver, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.Path == "" {
		t.Error("expected default bolt path")
	}
	if cfg.Embedding.Model != domain.DefaultEmbeddingModel {
		t.Errorf("expected model %q, got %q", domain.DefaultEmbeddingModel, cfg.Embedding.Model)
	}
	if cfg.Retrieval.FusionI != 1 {
		t.Errorf("expected fusion_i 1, got %v", cfg.Retrieval.FusionI)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("expected top_k 10, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MinFusedScore() != 0.5 {
		t.Errorf("expected min_score 0.5, got %v", cfg.Retrieval.MinFusedScore())
	}
	if cfg.Retrieval.MinCandidates != 2 {
		t.Errorf("expected min_candidates 2, got %d", cfg.Retrieval.MinCandidates)
	}
	if cfg.Semantic.PassageThreshold() != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Semantic.PassageThreshold())
	}
	if cfg.Aggregate.MinWords != 20 || cfg.Aggregate.MaxWords != 10000 {
		t.Errorf("expected word bounds 20/10000, got %d/%d", cfg.Aggregate.MinWords, cfg.Aggregate.MaxWords)
	}
	if !cfg.Embedding.PersistEnabled() {
		t.Error("expected persistent embedding cache by default")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9090},
		Cache:     CacheConfig{Driver: DriverValkey, Addrs: []string{"valkey:6379"}},
		Retrieval: RetrievalConfig{TopK: 5, MinScore: floatPtr(0.7)},
		Aggregate: AggregateConfig{MinWords: -1, MaxWords: 500},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Cache.Path != "" {
		t.Errorf("expected no bolt path for valkey, got %q", cfg.Cache.Path)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.MinFusedScore() != 0.7 {
		t.Errorf("retrieval overridden: %+v", cfg.Retrieval)
	}
	if cfg.Aggregate.MinWords != -1 || cfg.Aggregate.MaxWords != 500 {
		t.Errorf("aggregate overridden: %+v", cfg.Aggregate)
	}
}

func TestParse_ZeroThresholdsKept(t *testing.T) {
	cfg, err := Parse([]byte(`
corpus:
  path: data/laws.parquet
retrieval:
  min_score: 0
semantic:
  threshold: 0
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.Retrieval.MinFusedScore(); got != 0 {
		t.Errorf("min_score = %v, want 0", got)
	}
	if got := cfg.Semantic.PassageThreshold(); got != 0 {
		t.Errorf("threshold = %v, want 0", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero thresholds must validate: %v", err)
	}
}

func TestLLMConfig_Flags(t *testing.T) {
	off := false

	tests := []struct {
		name        string
		cfg         LLMConfig
		wantEnabled bool
		wantRewrite bool
	}{
		{"no key", LLMConfig{}, false, false},
		{"key", LLMConfig{APIKey: "k"}, true, true},
		{"rewrite off", LLMConfig{APIKey: "k", RewriteQuery: &off}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Enabled(); got != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", got, tt.wantEnabled)
			}
			if got := tt.cfg.RewriteEnabled(); got != tt.wantRewrite {
				t.Errorf("RewriteEnabled() = %v, want %v", got, tt.wantRewrite)
			}
		})
	}
}

func TestLLMConfig_Headers(t *testing.T) {
	h := LLMConfig{Referer: "https://eulex.local", Title: "eulex"}.Headers()
	if h["HTTP-Referer"] != "https://eulex.local" || h["X-Title"] != "eulex" {
		t.Errorf("unexpected headers: %v", h)
	}
	if len(LLMConfig{}.Headers()) != 0 {
		t.Error("expected no headers when unset")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EULEX_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${EULEX_TEST_KEY}\nb: ${EULEX_TEST_UNSET:-fallback}\nc: ${EULEX_TEST_UNSET}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("EULEX_TEST_CORPUS", "laws.jsonl")

	path := filepath.Join(t.TempDir(), "test.yaml")
	data := []byte(`
corpus:
  path: ${EULEX_TEST_CORPUS}
retrieval:
  top_k: 3
llm:
  rewrite_query: false
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Corpus.Path != "laws.jsonl" {
		t.Errorf("expected expanded corpus path, got %q", cfg.Corpus.Path)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", cfg.Retrieval.TopK)
	}
	if cfg.LLM.RewriteQuery == nil || *cfg.LLM.RewriteQuery {
		t.Error("expected rewrite_query=false to be kept")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Fatal("expected validation error without corpus path")
	}
}
