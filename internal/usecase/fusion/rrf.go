// Package fusion merges ranked lists with Reciprocal Rank Fusion.
package fusion

import (
	"sort"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// Ranked is one entry of an input ranking. Rank is 0-based.
type Ranked struct {
	DocID string
	Rank  int
}

// Result is one fused entry. Rank is the 0-based position in the fused order.
type Result struct {
	DocID string
	Score float64
	Rank  int
}

// Fuse merges lists via Reciprocal Rank Fusion:
// score(d) = sum over lists of 1/(i + rank(d)), rank 0-based.
// Output is sorted by descending score; equal scores keep the order in which
// the documents were first seen (list by list, top to bottom). The result is
// truncated to topK; topK <= 0 returns everything. A non-positive i falls
// back to domain.DefaultFusionConstant.
func Fuse(lists [][]Ranked, i float64, topK int) []Result {
	if i <= 0 {
		i = domain.DefaultFusionConstant
	}

	index := make(map[string]int)
	var out []Result
	for _, list := range lists {
		for _, r := range list {
			s := 1.0 / (i + float64(r.Rank))
			if pos, ok := index[r.DocID]; ok {
				out[pos].Score += s
				continue
			}
			index[r.DocID] = len(out)
			out = append(out, Result{DocID: r.DocID, Score: s})
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	for r := range out {
		out[r].Rank = r
	}
	return out
}
