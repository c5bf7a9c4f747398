package eurlex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/resource/celex"
	return NewClient(cfg, zap.NewNop())
}

func TestFetch_Success(t *testing.T) {
	var gotPath, gotAccept, gotLang string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAccept = r.Header.Get("Accept")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte(modernPage))
	}, Config{})

	d, err := c.Fetch(context.Background(), "32009L0048")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/resource/celex/32009L0048" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAccept != "text/html,application/xhtml+xml,application/xml" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotLang != "en" {
		t.Errorf("Accept-Language = %q", gotLang)
	}
	if len(d.Articles) == 0 {
		t.Error("expected parsed articles")
	}
}

func TestFetch_EscapesCelexID(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte("<html></html>"))
	}, Config{})

	if _, err := c.Fetch(context.Background(), "31994R2257(01)"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/resource/celex/31994R2257%2801%29" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestFetch_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, Config{})

	_, err := c.Fetch(context.Background(), "X")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, Config{})

	_, err := c.Fetch(context.Background(), "X")
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestFetch_NoRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{})

	_, _ = c.Fetch(context.Background(), "X")
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one request, got %d", n)
	}
}

func TestFetch_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Config{BreakerFailures: 2, BreakerOpenFor: time.Minute})

	for i := 0; i < 2; i++ {
		_, _ = c.Fetch(context.Background(), "X")
	}
	_, err := c.Fetch(context.Background(), "X")
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed from open breaker, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("open breaker must short-circuit, got %d requests", n)
	}
}

func TestFetch_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, Config{BreakerFailures: 1})

	for i := 0; i < 3; i++ {
		_, _ = c.Fetch(context.Background(), "X")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("404s must not open the breaker, got %d requests", n)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}, Config{RequestsPerSecond: 0.001})

	// First call consumes the single burst token.
	if _, err := c.Fetch(context.Background(), "X"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Fetch(ctx, "X"); err == nil {
		t.Fatal("expected rate limiter wait to fail on deadline")
	}
}
