// Package chi exposes the retrieval pipeline over HTTP with the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/logger"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
	healthuc "github.com/kailas-cloud/eulex/internal/usecase/health"
	"github.com/kailas-cloud/eulex/internal/usecase/pipeline"
	usageuc "github.com/kailas-cloud/eulex/internal/usecase/usage"
)

const maxBodyBytes = 64 << 10

// ErrorCode is the machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeEmptyQuery        ErrorCode = "empty_query"
	ErrorCodeQuotaExceeded     ErrorCode = "embedding_quota_exceeded"
	ErrorCodeEmbeddingError    ErrorCode = "embedding_provider_error"
	ErrorCodeLLMError          ErrorCode = "llm_provider_error"
	ErrorCodeCorpusUnavailable ErrorCode = "corpus_unavailable"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// QuestionRequest is the body of the question endpoints.
type QuestionRequest struct {
	Question string `json:"question"`
}

// ContextResponse is returned by POST /v1/context.
type ContextResponse struct {
	Query      string               `json:"query"`
	Context    string               `json:"context"`
	Titles     []string             `json:"titles"`
	Candidates []pipeline.Candidate `json:"candidates"`
	Groups     []aggregate.Group    `json:"groups"`
	Passages   []law.ScoredPassage  `json:"passages"`
	TotalWords int                  `json:"total_words"`
}

// AskResponse is returned by POST /v1/ask.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Query   string   `json:"query"`
	Titles  []string `json:"titles"`
	Context string   `json:"context"`
}

// SearchResponse is returned by POST /v1/search.
type SearchResponse struct {
	Candidates []pipeline.Candidate `json:"candidates"`
}

// Pipeline is the retrieval service consumed by the handlers.
type Pipeline interface {
	Candidates(ctx context.Context, query string) ([]pipeline.Candidate, error)
	Retrieve(ctx context.Context, question string) (pipeline.Result, error)
	Answer(ctx context.Context, question string) (pipeline.Answer, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports embedding token usage.
type UsageReporter interface {
	Report(ctx context.Context, period usageuc.Period) usageuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	pipeline      Pipeline
	health        HealthChecker
	usage         UsageReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. usage may be nil.
func NewServer(p Pipeline, health HealthChecker, usage UsageReporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{pipeline: p, health: health, usage: usage, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeEmptyQuery),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, ErrorCodeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMError),
		sentinelHandler(domain.ErrCorpusUnavailable, http.StatusServiceUnavailable, ErrorCodeCorpusUnavailable),
	}
	return s
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ans, err := s.pipeline.Answer(ctx, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, AskResponse{
		Answer:  ans.Text,
		Query:   ans.Query,
		Titles:  nonNil(ans.Titles),
		Context: ans.Context.Text,
	})
}

// Context handles POST /v1/context.
func (s *Server) Context(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.pipeline.Retrieve(ctx, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ContextResponse{
		Query:      res.Query,
		Context:    res.Context.Text,
		Titles:     nonNil(res.Titles),
		Candidates: nonNil(res.Candidates),
		Groups:     nonNil(res.Context.Groups),
		Passages:   nonNil(res.Context.Passages),
		TotalWords: res.Context.TotalWords,
	})
}

// Search handles POST /v1/search: lexical candidates only, no embeddings.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	candidates, err := s.pipeline.Candidates(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Candidates: nonNil(candidates)})
}

// Usage handles GET /v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, err := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	if s.usage == nil {
		writeJSON(w, http.StatusOK, usageuc.New(nil).Report(r.Context(), period))
		return
	}
	writeJSON(w, http.StatusOK, s.usage.Report(r.Context(), period))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (QuestionRequest, bool) {
	var req QuestionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(usage.TotalTokens(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
		domain.ErrCorpusUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
