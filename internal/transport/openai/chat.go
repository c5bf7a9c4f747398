package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/metrics"
)

// ChatConfig holds chat completion settings on top of Config.
type ChatConfig struct {
	Config
	Temperature float32
	MaxTokens   int
	// Headers are sent with every request (OpenRouter uses HTTP-Referer and X-Title).
	Headers map[string]string
}

// Chat sends single-turn prompts to an OpenAI-compatible chat completion API.
type Chat struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewChat creates a chat client.
func NewChat(cfg *ChatConfig) *Chat {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Chat{
		client:      newClient(&cfg.Config, cfg.Headers),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Complete sends prompt as a single user message and returns the reply.
// operation labels metrics and logs ("rewrite", "answer").
func (c *Chat) Complete(ctx context.Context, operation, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	metrics.LLMRequestDuration.WithLabelValues(c.model, operation).Observe(duration.Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, operation, "error").Inc()
		return "", parseAPIError("chat", err, domain.ErrLLMProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.model, operation, "error").Inc()
		return "", fmt.Errorf("chat completion returned no choices: %w", domain.ErrLLMProviderError)
	}
	metrics.LLMRequestsTotal.WithLabelValues(c.model, operation, "success").Inc()

	content := resp.Choices[0].Message.Content
	c.logger.Debug("Chat completion done",
		zap.String("model", c.model),
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("chat completion returned empty content: %w", domain.ErrLLMProviderError)
	}
	return content, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Chat) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
