package fusion

import (
	"math"
	"testing"
)

func list(ids ...string) []Ranked {
	out := make([]Ranked, len(ids))
	for i, id := range ids {
		out[i] = Ranked{DocID: id, Rank: i}
	}
	return out
}

func TestFuse_TopInBothLists(t *testing.T) {
	res := Fuse([][]Ranked{list("a", "b"), list("a", "c")}, 1, 10)

	if res[0].DocID != "a" {
		t.Fatalf("expected a first, got %s", res[0].DocID)
	}
	if math.Abs(res[0].Score-2.0) > 1e-12 {
		t.Errorf("expected 2/(1+0) = 2, got %v", res[0].Score)
	}
	for _, r := range res[1:] {
		if r.Score >= res[0].Score {
			t.Errorf("single-list doc %s scored %v, not below %v", r.DocID, r.Score, res[0].Score)
		}
	}
}

func TestFuse_CustomConstant(t *testing.T) {
	res := Fuse([][]Ranked{list("a"), list("a")}, 60, 10)
	if math.Abs(res[0].Score-2.0/60) > 1e-12 {
		t.Errorf("expected 2/60, got %v", res[0].Score)
	}
}

func TestFuse_DescendingNoDuplicates(t *testing.T) {
	res := Fuse([][]Ranked{
		list("a", "b", "c", "d"),
		list("d", "c", "e"),
	}, 1, 0)

	seen := make(map[string]bool)
	for i, r := range res {
		if seen[r.DocID] {
			t.Errorf("duplicate %s", r.DocID)
		}
		seen[r.DocID] = true
		if r.Rank != i {
			t.Errorf("result %d has rank %d", i, r.Rank)
		}
		if i > 0 && r.Score > res[i-1].Score {
			t.Errorf("not descending at %d: %v > %v", i, r.Score, res[i-1].Score)
		}
	}
	if len(res) != 5 {
		t.Errorf("expected 5 unique docs, got %d", len(res))
	}
}

func TestFuse_TiesKeepFirstSeenOrder(t *testing.T) {
	// a and x both score 1, b and y both score 1/2.
	res := Fuse([][]Ranked{list("a", "b"), list("x", "y")}, 1, 10)
	want := []string{"a", "x", "b", "y"}
	for i, id := range want {
		if res[i].DocID != id {
			t.Fatalf("position %d: got %s, want %s (%+v)", i, res[i].DocID, id, res)
		}
	}
}

func TestFuse_TruncatesToTopK(t *testing.T) {
	res := Fuse([][]Ranked{list("a", "b", "c", "d")}, 1, 2)
	if len(res) != 2 || res[0].DocID != "a" || res[1].DocID != "b" {
		t.Errorf("unexpected truncation: %+v", res)
	}
}

func TestFuse_FewerThanTopK(t *testing.T) {
	res := Fuse([][]Ranked{list("a"), list("b")}, 1, 10)
	if len(res) != 2 {
		t.Errorf("expected all 2 docs, got %d", len(res))
	}
}

func TestFuse_Empty(t *testing.T) {
	if res := Fuse(nil, 1, 10); len(res) != 0 {
		t.Errorf("expected empty, got %+v", res)
	}
}

func TestFuse_NonPositiveConstant(t *testing.T) {
	res := Fuse([][]Ranked{list("a")}, 0, 10)
	if math.IsInf(res[0].Score, 0) || res[0].Score != 1 {
		t.Errorf("expected default constant, got score %v", res[0].Score)
	}
}
