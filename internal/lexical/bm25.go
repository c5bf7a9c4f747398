package lexical

import (
	"math"
	"sort"
)

// BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type posting struct {
	doc uint32
	tf  uint32
}

// Index is an in-memory BM25 inverted index over one field of the corpus.
// It is immutable after Build or load and safe for concurrent Search.
type Index struct {
	k1, b    float64
	docIDs   []string
	docLen   []uint32
	avgLen   float64
	postings map[string][]posting
}

// Build indexes texts[i] under ids[i]. Corpus position is the tie-breaker
// for equal scores.
func Build(ids, texts []string) *Index {
	idx := &Index{
		k1:       DefaultK1,
		b:        DefaultB,
		docIDs:   append([]string(nil), ids...),
		docLen:   make([]uint32, len(ids)),
		postings: make(map[string][]posting),
	}

	var total uint64
	for i, text := range texts {
		tokens := Tokenize(text)
		idx.docLen[i] = uint32(len(tokens))
		total += uint64(len(tokens))

		tf := make(map[string]uint32, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, n := range tf {
			idx.postings[term] = append(idx.postings[term], posting{doc: uint32(i), tf: n})
		}
	}
	if len(ids) > 0 {
		idx.avgLen = float64(total) / float64(len(ids))
	}
	// Posting lists are in ascending doc order.
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.docIDs) }

// Terms returns the vocabulary size.
func (idx *Index) Terms() int { return len(idx.postings) }

// idf is the BM25 inverse document frequency, floored at zero through the
// +1 inside the log so common terms never subtract from a score.
func (idx *Index) idf(df int) float64 {
	n := float64(len(idx.docIDs))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

// Search scores every document matching at least one query term and returns
// up to depth results by descending score, ties by corpus order.
// depth <= 0 returns every match.
func (idx *Index) Search(tokens []string, depth int) []RankedResult {
	if len(tokens) == 0 || len(idx.docIDs) == 0 {
		return nil
	}

	qtf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		qtf[t]++
	}

	scores := make(map[uint32]float64)
	for term, qf := range qtf {
		plist := idx.postings[term]
		if len(plist) == 0 {
			continue
		}
		w := idx.idf(len(plist)) * float64(qf)
		for _, p := range plist {
			tf := float64(p.tf)
			norm := idx.k1 * (1 - idx.b + idx.b*float64(idx.docLen[p.doc])/idx.avgLen)
			scores[p.doc] += w * tf * (idx.k1 + 1) / (tf + norm)
		}
	}

	docs := make([]uint32, 0, len(scores))
	for d := range scores {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		si, sj := scores[docs[i]], scores[docs[j]]
		if si != sj {
			return si > sj
		}
		return docs[i] < docs[j]
	})
	if depth > 0 && len(docs) > depth {
		docs = docs[:depth]
	}

	out := make([]RankedResult, len(docs))
	for r, d := range docs {
		out[r] = RankedResult{DocID: idx.docIDs[d], Rank: r, Score: scores[d]}
	}
	return out
}
