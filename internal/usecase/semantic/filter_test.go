package semantic

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
)

// --- Tests ---

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_KeepsPassagesAboveThreshold(t *testing.T) {
	emb := &vecEmbedder{
		vectors: map[string][]float32{
			"toy safety":     {1, 0},
			"toys must":      {0.9, 0.1},
			"fishing quotas": {0, 1},
			"annex toys":     {1, 1},
		},
		fallback: []float32{0, 1},
	}
	f := New(emb, 0.5, 2, zap.NewNop())

	docs := []law.StructuredDocument{{
		CelexID:  "32009L0048",
		Articles: []law.Passage{article("art_1", "toys must"), article("art_2", "fishing quotas")},
		Annexes:  []law.Passage{annex("anx_1", "annex toys")},
	}}

	got, err := f.Filter(context.Background(), "toy safety", docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 document, got %d", len(got))
	}
	ps := got[0].Passages
	if len(ps) != 2 || ps[0].ID != "art_1" || ps[1].ID != "anx_1" {
		t.Fatalf("expected [art_1 anx_1] in document order, got %+v", ps)
	}
	if ps[0].CelexID != "32009L0048" {
		t.Errorf("expected CelexID on passage, got %q", ps[0].CelexID)
	}
	if ps[1].Score < 0.70 || ps[1].Score > 0.71 {
		t.Errorf("expected annex score ~0.707, got %v", ps[1].Score)
	}
}

func TestFilter_DropsDocumentsWithoutSurvivors(t *testing.T) {
	emb := &vecEmbedder{
		vectors:  map[string][]float32{"q": {1, 0}, "hit": {1, 0}},
		fallback: []float32{0, 1},
	}
	f := New(emb, 0.5, 0, nil)

	docs := []law.StructuredDocument{
		{CelexID: "A", Articles: []law.Passage{article("art_1", "miss")}},
		{CelexID: "B", Articles: []law.Passage{article("art_1", "hit")}},
		{CelexID: "C"},
	}
	got, err := f.Filter(context.Background(), "q", docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].CelexID != "B" {
		t.Fatalf("expected only B, got %+v", got)
	}
}

func TestFilter_SkipsEmptyPassagesAndAppendices(t *testing.T) {
	emb := &vecEmbedder{fallback: []float32{1}}
	f := New(emb, 0.5, 1, zap.NewNop())

	docs := []law.StructuredDocument{{
		CelexID:    "A",
		Articles:   []law.Passage{article("art_1", "   "), article("art_2", "text")},
		Appendices: []law.Passage{{ID: "app_1", Kind: law.KindAppendix, Text: "appendix"}},
	}}
	got, err := f.Filter(context.Background(), "q", docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[0].Passages) != 1 || got[0].Passages[0].ID != "art_2" {
		t.Fatalf("expected only art_2, got %+v", got[0].Passages)
	}
	for _, text := range emb.texts {
		if text == "   " || text == "appendix" {
			t.Errorf("text %q must not be embedded", text)
		}
	}
}

func TestFilter_EmbedsQueryOnceAndBatchesPerDocument(t *testing.T) {
	emb := &vecEmbedder{fallback: []float32{1}}
	f := New(emb, 0.5, 4, zap.NewNop())

	docs := []law.StructuredDocument{
		{CelexID: "A", Articles: []law.Passage{article("art_1", "a1"), article("art_2", "a2")}},
		{CelexID: "B", Articles: []law.Passage{article("art_1", "b1")}},
	}
	if _, err := f.Filter(context.Background(), "q", docs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	queries := 0
	for _, text := range emb.texts {
		if text == "q" {
			queries++
		}
	}
	if queries != 1 {
		t.Errorf("expected query embedded once, got %d", queries)
	}
	if emb.batchCalls != 2 {
		t.Errorf("expected one batch per document, got %d", emb.batchCalls)
	}
}

func TestFilter_MonotonicInThreshold(t *testing.T) {
	emb := &vecEmbedder{
		vectors: map[string][]float32{
			"q":  {1, 0},
			"p1": {1, 0},
			"p2": {1, 1},
			"p3": {1, 3},
			"p4": {0, 1},
		},
	}
	docs := []law.StructuredDocument{{
		CelexID: "A",
		Articles: []law.Passage{
			article("art_1", "p1"), article("art_2", "p2"),
			article("art_3", "p3"), article("art_4", "p4"),
		},
	}}

	count := func(threshold float64) int {
		got, err := New(emb, threshold, 1, nil).Filter(context.Background(), "q", docs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n := 0
		for _, d := range got {
			n += len(d.Passages)
		}
		return n
	}

	prev := math.MaxInt
	for _, th := range []float64{-1, 0, 0.3, 0.5, 0.8, 1, 1.1} {
		n := count(th)
		if n > prev {
			t.Fatalf("raising threshold to %v increased survivors from %d to %d", th, prev, n)
		}
		prev = n
	}
}

func TestFilter_QueryEmbeddingFailure(t *testing.T) {
	emb := &vecEmbedder{queryErr: errors.New("connection reset")}
	f := New(emb, 0.5, 1, nil)

	_, err := f.Filter(context.Background(), "q", []law.StructuredDocument{
		{CelexID: "A", Articles: []law.Passage{article("art_1", "x")}},
	})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestFilter_PassageEmbeddingFailureAbortsQuery(t *testing.T) {
	emb := &vecEmbedder{fallback: []float32{1}, err: domain.ErrEmbeddingQuotaExceeded}
	f := New(emb, 0.5, 1, nil)

	_, err := f.Filter(context.Background(), "q", []law.StructuredDocument{
		{CelexID: "A", Articles: []law.Passage{article("art_1", "x")}},
	})
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected ErrEmbeddingQuotaExceeded, got %v", err)
	}
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Error("quota errors must keep their identity")
	}
}

func TestFilter_NoDocuments(t *testing.T) {
	emb := &vecEmbedder{}
	got, err := New(emb, 0.5, 1, nil).Filter(context.Background(), "q", nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
	if len(emb.texts) != 0 {
		t.Error("query must not be embedded without documents")
	}
}
