package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/metrics"
)

func chatServer(t *testing.T, status int, body any, check func(r *http.Request, req map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if check != nil {
			check(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":     "cmpl-1",
		"object": "chat.completion",
		"model":  "qwen/qwen3-30b-a3b:free",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17},
	}
}

func newTestChat(url string) *Chat {
	return NewChat(&ChatConfig{
		Config: Config{
			APIKey:  "test-key",
			BaseURL: url,
			Model:   "qwen/qwen3-30b-a3b:free",
			Logger:  zap.NewNop(),
		},
		Headers: map[string]string{"X-Title": "eulex"},
	})
}

func TestChat_Complete(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completion("Toys must be safe."), func(r *http.Request, req map[string]any) {
		if r.Header.Get("X-Title") != "eulex" {
			t.Errorf("missing extra header, got %q", r.Header.Get("X-Title"))
		}
		if req["model"] != "qwen/qwen3-30b-a3b:free" {
			t.Errorf("unexpected model %v", req["model"])
		}
		msgs, _ := req["messages"].([]any)
		if len(msgs) != 1 {
			t.Fatalf("expected one message, got %v", req["messages"])
		}
		msg, _ := msgs[0].(map[string]any)
		if msg["role"] != "user" || msg["content"] != "the prompt" {
			t.Errorf("unexpected message %v", msg)
		}
	})

	before := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("qwen/qwen3-30b-a3b:free", "answer", "success"))

	got, err := newTestChat(srv.URL).Complete(context.Background(), "answer", "the prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Toys must be safe." {
		t.Errorf("Complete = %q", got)
	}

	after := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("qwen/qwen3-30b-a3b:free", "answer", "success"))
	if after != before+1 {
		t.Errorf("success counter not incremented: %v -> %v", before, after)
	}
}

func TestChat_ProviderError(t *testing.T) {
	srv := chatServer(t, http.StatusBadGateway, map[string]any{
		"error": map[string]any{"message": "upstream unavailable", "type": "server_error"},
	}, nil)

	_, err := newTestChat(srv.URL).Complete(context.Background(), "answer", "p")
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestChat_NoChoices(t *testing.T) {
	body := completion("")
	body["choices"] = []any{}
	srv := chatServer(t, http.StatusOK, body, nil)

	_, err := newTestChat(srv.URL).Complete(context.Background(), "rewrite", "p")
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestChat_EmptyContent(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completion("   "), nil)

	_, err := newTestChat(srv.URL).Complete(context.Background(), "rewrite", "p")
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestChat_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	if err := newTestChat(srv.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
