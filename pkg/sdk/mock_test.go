package eulex

import (
	"context"

	healthuc "github.com/kailas-cloud/eulex/internal/usecase/health"
	"github.com/kailas-cloud/eulex/internal/usecase/pipeline"
	usageuc "github.com/kailas-cloud/eulex/internal/usecase/usage"
)

// --- pipelineUseCase mock ---

type mockPipelineUC struct {
	candidatesFn func(ctx context.Context, query string) ([]pipeline.Candidate, error)
	retrieveFn   func(ctx context.Context, question string) (pipeline.Result, error)
	answerFn     func(ctx context.Context, question string) (pipeline.Answer, error)
}

func (m *mockPipelineUC) Candidates(ctx context.Context, query string) ([]pipeline.Candidate, error) {
	return m.candidatesFn(ctx, query)
}

func (m *mockPipelineUC) Retrieve(ctx context.Context, question string) (pipeline.Result, error) {
	return m.retrieveFn(ctx, question)
}

func (m *mockPipelineUC) Answer(ctx context.Context, question string) (pipeline.Answer, error) {
	return m.answerFn(ctx, question)
}

// --- indexOpener mock ---

type mockIndex struct {
	err   error
	calls int
}

func (m *mockIndex) Open(context.Context) error {
	m.calls++
	return m.err
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- usageUseCase mock ---

type mockUsageUC struct {
	fn func(ctx context.Context, period usageuc.Period) usageuc.Report
}

func (m *mockUsageUC) Report(ctx context.Context, period usageuc.Period) usageuc.Report {
	return m.fn(ctx, period)
}

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- helpers ---

func testClient(p pipelineUseCase) *Client {
	return &Client{pipeline: p}
}
