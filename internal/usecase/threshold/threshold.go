// Package threshold turns a fused ranking into the final candidate set.
package threshold

import "github.com/kailas-cloud/eulex/internal/usecase/fusion"

// CandidateSet is the list of laws passed on to full-text resolution,
// in fused order.
type CandidateSet []fusion.Result

// IDs returns the document ids in order.
func (c CandidateSet) IDs() []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.DocID
	}
	return ids
}

// Filter keeps every entry scoring at least minScore, in order.
func Filter(fused []fusion.Result, minScore float64) []fusion.Result {
	kept := make([]fusion.Result, 0, len(fused))
	for _, r := range fused {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept
}

// Backfill returns kept when it holds at least minimum entries. Otherwise it
// discards the filter and returns the top minimum fused entries, or all of
// them if fewer exist.
func Backfill(fused, kept []fusion.Result, minimum int) []fusion.Result {
	if len(kept) >= minimum {
		return kept
	}
	n := minimum
	if n > len(fused) {
		n = len(fused)
	}
	return append([]fusion.Result(nil), fused[:n]...)
}

// Apply filters fused by minScore and backfills up to minimum entries.
func Apply(fused []fusion.Result, minScore float64, minimum int) CandidateSet {
	return CandidateSet(Backfill(fused, Filter(fused, minScore), minimum))
}
