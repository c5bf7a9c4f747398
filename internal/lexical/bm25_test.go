package lexical

import "testing"

func TestIndex_Search_Ranking(t *testing.T) {
	idx := Build(
		[]string{"A", "B", "C"},
		[]string{
			"toy safety requirements for toys placed on the market",
			"general product safety",
			"fisheries quotas in the baltic sea",
		},
	)

	got := idx.Search(Tokenize("toy safety"), 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}
	if got[0].DocID != "A" || got[1].DocID != "B" {
		t.Errorf("unexpected order: %+v", got)
	}
	for i, r := range got {
		if r.Rank != i {
			t.Errorf("result %d has rank %d", i, r.Rank)
		}
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %v <= %v", got[0].Score, got[1].Score)
	}
}

func TestIndex_Search_TiesByCorpusOrder(t *testing.T) {
	idx := Build([]string{"X", "Y", "Z"}, []string{"toys", "other", "toys"})
	got := idx.Search([]string{"toys"}, 0)
	if len(got) != 2 || got[0].DocID != "X" || got[1].DocID != "Z" {
		t.Fatalf("expected X before Z on equal score, got %+v", got)
	}
	if got[0].Score != got[1].Score {
		t.Errorf("expected equal scores, got %v and %v", got[0].Score, got[1].Score)
	}
}

func TestIndex_Search_Depth(t *testing.T) {
	idx := Build([]string{"1", "2", "3"}, []string{"law", "law law", "law law law"})
	got := idx.Search([]string{"law"}, 2)
	if len(got) != 2 {
		t.Fatalf("expected depth 2, got %d", len(got))
	}
}

func TestIndex_Search_Empty(t *testing.T) {
	idx := Build([]string{"1"}, []string{"law"})
	if got := idx.Search(nil, 10); got != nil {
		t.Errorf("expected nil for empty query, got %v", got)
	}
	if got := idx.Search([]string{"absent"}, 10); len(got) != 0 {
		t.Errorf("expected no hits, got %v", got)
	}
}

func TestIndex_IDFNonNegative(t *testing.T) {
	idx := Build([]string{"1", "2"}, []string{"common", "common"})
	got := idx.Search([]string{"common"}, 0)
	for _, r := range got {
		if r.Score < 0 {
			t.Errorf("negative score for term in every document: %v", r.Score)
		}
	}
}

func TestPostingsRoundTrip(t *testing.T) {
	in := []posting{{doc: 0, tf: 3}, {doc: 7, tf: 1}, {doc: 300, tf: 12}}
	out, err := decodePostings(encodePostings(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d postings, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("posting %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestDecodePostings_Corrupt(t *testing.T) {
	if _, err := decodePostings([]byte{0x80}); err == nil {
		t.Fatal("expected error for truncated varint")
	}
}
