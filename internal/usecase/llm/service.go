// Package llm wraps the chat model calls around retrieval: rewriting the
// user's question into a legal search query and answering it from the
// assembled context.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/logger"
	"github.com/kailas-cloud/eulex/internal/usecase/prompt"
)

// Operation labels for metrics and logs.
const (
	OpRewrite = "rewrite"
	OpAnswer  = "answer"
)

// Completer sends one prompt and returns the raw model reply.
type Completer interface {
	Complete(ctx context.Context, operation, prompt string) (string, error)
}

// Service renders prompts and cleans model replies.
type Service struct {
	completer Completer
	rewrite   *prompt.Template
	answer    *prompt.Template
	logger    *zap.Logger
}

// New creates a service. Nil templates fall back to the built-in ones.
func New(c Completer, rewrite, answer *prompt.Template, logger *zap.Logger) *Service {
	if rewrite == nil {
		rewrite = prompt.Rewrite()
	}
	if answer == nil {
		answer = prompt.Answer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{completer: c, rewrite: rewrite, answer: answer, logger: logger}
}

// RewriteQuery turns a natural-language question into a legal search query.
// Only the first non-empty line of the cleaned reply is used; an empty reply
// keeps the original question.
func (s *Service) RewriteQuery(ctx context.Context, question string) (string, error) {
	p, err := s.rewrite.Render(map[prompt.Slot]string{prompt.SlotInitialQuery: question})
	if err != nil {
		return "", fmt.Errorf("render rewrite prompt: %w", err)
	}
	reply, err := s.completer.Complete(ctx, OpRewrite, p)
	if err != nil {
		return "", fmt.Errorf("rewrite query: %w", err)
	}

	rewritten := firstLine(CleanResponse(reply))
	rewritten = strings.Trim(rewritten, "\"'` ")
	if rewritten == "" {
		logger.FromContextOr(ctx, s.logger).Warn("Empty rewrite, using original question")
		return question, nil
	}

	logger.FromContextOr(ctx, s.logger).Debug("Query rewritten",
		zap.String("question", question),
		zap.String("rewritten", rewritten),
	)
	return rewritten, nil
}

// Answer asks the model to answer question from the rendered legal context.
func (s *Service) Answer(ctx context.Context, question, lawContext string) (string, error) {
	p, err := s.answer.Render(map[prompt.Slot]string{
		prompt.SlotUserQuery:      question,
		prompt.SlotSummarizedLaws: lawContext,
	})
	if err != nil {
		return "", fmt.Errorf("render answer prompt: %w", err)
	}
	reply, err := s.completer.Complete(ctx, OpAnswer, p)
	if err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	return CleanResponse(reply), nil
}

func firstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
