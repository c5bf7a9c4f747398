package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/corpus"
	"github.com/kailas-cloud/eulex/internal/db/bolt"
	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/lexical"
	"github.com/kailas-cloud/eulex/internal/repository/lawcache"
	"github.com/kailas-cloud/eulex/internal/usecase/aggregate"
	"github.com/kailas-cloud/eulex/internal/usecase/fulltext"
	"github.com/kailas-cloud/eulex/internal/usecase/semantic"
)

const (
	toyID       = "32009L0048"
	toyTitle    = "Directive 2009/48/EC on the safety of toy products"
	machineryID = "32006L0042"
	dataID      = "32016R0679"
)

// toyArticle is exactly 50 words.
var toyArticle = strings.TrimSpace(strings.Repeat(
	"Toys placed on the market shall meet essential safety requirements. ", 5))

func toyCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New([]law.Document{
		{
			CelexID: toyID,
			Title:   toyTitle,
			Text:    "Rules on the safety of toy products and their free movement in the Union.",
		},
		{
			CelexID: machineryID,
			Title:   "Directive 2006/42/EC on machinery",
			Text:    "Essential health and safety requirements relating to the design and construction of machinery.",
		},
		{
			CelexID: dataID,
			Title:   "Regulation (EU) 2016/679 on the protection of natural persons with regard to personal data",
			Text:    "Requirements for the processing of personal data by controllers and processors.",
		},
	})
	if err != nil {
		t.Fatalf("corpus: %v", err)
	}
	return c
}

func toyPipeline(t *testing.T) (*Service, *mapFetcher) {
	t.Helper()
	c := toyCorpus(t)

	store, err := bolt.NewStore(filepath.Join(t.TempDir(), "laws.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	machineryArticle := strings.TrimSpace(strings.Repeat(
		"Machinery shall be designed and constructed so that it is fit for its function. ", 3))
	dataArticle := strings.TrimSpace(strings.Repeat(
		"Personal data shall be processed lawfully and fairly in relation to the data subject. ", 3))

	fetcher := &mapFetcher{docs: map[string]law.StructuredDocument{
		toyID: {
			CelexID:  toyID,
			Title:    toyTitle,
			Articles: []law.Passage{{ID: "1", Kind: law.KindArticle, Text: toyArticle}},
		},
		machineryID: {
			CelexID:  machineryID,
			Articles: []law.Passage{{ID: "1", Kind: law.KindArticle, Text: machineryArticle}},
		},
		dataID: {
			CelexID:  dataID,
			Articles: []law.Passage{{ID: "1", Kind: law.KindArticle, Text: dataArticle}},
		},
	}}

	// Cosine with the query: toy article 0.9, everything else 0.1.
	embedder := &mapEmbedder{
		vectors: map[string][]float32{
			"toy safety requirements": {1, 0},
			toyArticle:                {0.9, 0.43588989},
		},
		fallback: []float32{0.1, 0.99498744},
	}

	log := zap.NewNop()
	svc := New(
		lexical.NewRetriever(c, "", log),
		c,
		fulltext.New(lawcache.New(store, log), fetcher, 2, log),
		semantic.New(embedder, domain.DefaultPassageThreshold, 2, log),
		aggregate.New(domain.DefaultMinPassageWords, domain.DefaultMaxContextWords, log),
		nil,
		Config{},
		log,
	)
	return svc, fetcher
}

func TestRetrieve_ToySafetyScenario(t *testing.T) {
	if n := aggregate.CountWords(toyArticle); n != 50 {
		t.Fatalf("fixture article has %d words, want 50", n)
	}
	svc, _ := toyPipeline(t)

	res, err := svc.Retrieve(context.Background(), "toy safety requirements")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(res.Candidates) < 2 {
		t.Fatalf("expected at least 2 candidates, got %+v", res.Candidates)
	}
	if res.Candidates[0].CelexID != toyID {
		t.Errorf("toy directive should be fused rank 0, got %+v", res.Candidates)
	}
	if res.Candidates[0].Score < domain.DefaultMinFusedScore {
		t.Errorf("toy directive score %v below threshold", res.Candidates[0].Score)
	}
	if res.Titles[0] != toyTitle {
		t.Errorf("titles[0] = %q", res.Titles[0])
	}

	want := toyTitle + "\n\n" + toyArticle
	if res.Context.Text != want {
		t.Errorf("context =\n%q\nwant\n%q", res.Context.Text, want)
	}
	if len(res.Context.Groups) != 1 || res.Context.Groups[0].CelexID != toyID {
		t.Errorf("only the toy directive should contribute, got %+v", res.Context.Groups)
	}
	if res.Context.TotalWords != aggregate.CountWords(want) {
		t.Errorf("total words = %d", res.Context.TotalWords)
	}
}

func TestRetrieve_SecondQueryServedFromCache(t *testing.T) {
	svc, fetcher := toyPipeline(t)
	ctx := context.Background()

	first, err := svc.Retrieve(ctx, "toy safety requirements")
	if err != nil {
		t.Fatalf("first Retrieve: %v", err)
	}
	fetched := fetcher.calls
	if fetched != len(first.Candidates) {
		t.Errorf("expected one fetch per candidate, got %d for %d", fetched, len(first.Candidates))
	}

	second, err := svc.Retrieve(ctx, "toy safety requirements")
	if err != nil {
		t.Fatalf("second Retrieve: %v", err)
	}
	if fetcher.calls != fetched {
		t.Errorf("second query fetched again: %d -> %d", fetched, fetcher.calls)
	}
	if second.Context.Text != first.Context.Text {
		t.Error("cached full text changed the context")
	}
}
