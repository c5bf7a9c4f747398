// Package eurlex fetches and parses the full text of EU laws from the
// Publications Office.
package eurlex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
)

// DefaultBaseURL is the CELEX resolver of the Publications Office.
const DefaultBaseURL = "http://publications.europa.eu/resource/celex/"

const maxBodyBytes = 32 << 20

// Config holds fetch parameters.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerOpenFor    time.Duration
	UserAgent         string
}

// Client fetches laws over HTTP. Calls are rate limited and guarded by a
// circuit breaker; failed requests are never retried.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
}

// NewClient creates a EUR-Lex client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	openFor := cfg.BreakerOpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "eurlex",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// A missing document is an answer, not an outage.
			return err == nil || errors.Is(err, domain.ErrDocumentNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:    base,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    breaker,
		logger:     logger,
	}
}

// Fetch downloads and parses the law identified by celexID.
func (c *Client) Fetch(ctx context.Context, celexID string) (law.StructuredDocument, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, celexID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return law.StructuredDocument{}, fmt.Errorf("fetch %s: %w: %w", celexID, domain.ErrFetchFailed, err)
		}
		return law.StructuredDocument{}, err
	}

	doc, err := Parse(celexID, bytes.NewReader(body))
	if err != nil {
		return law.StructuredDocument{}, err
	}
	c.logger.Debug("Law fetched",
		zap.String("celex_id", celexID),
		zap.Int("bytes", len(body)),
		zap.Int("articles", len(doc.Articles)),
		zap.Int("annexes", len(doc.Annexes)),
	)
	return doc, nil
}

func (c *Client) get(ctx context.Context, celexID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: rate limit: %w", celexID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+encodeCelex(celexID), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", celexID, domain.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml")
	req.Header.Set("Accept-Language", "en")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", celexID, domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", celexID, domain.ErrDocumentNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch %s: %w: status %d", celexID, domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w: %w", celexID, domain.ErrFetchFailed, err)
	}
	return body, nil
}

// encodeCelex escapes every reserved character, including '/' and
// parentheses, so the id stays a single path segment.
func encodeCelex(id string) string {
	return strings.ReplaceAll(url.QueryEscape(id), "+", "%20")
}
