// Package law holds the legal corpus and full-text types shared by the
// retrieval pipeline.
package law

import "strings"

// Document is one corpus entry. Immutable after load.
type Document struct {
	CelexID         string   `json:"celex_id"`
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	EurovocConcepts []string `json:"eurovoc_concepts,omitempty"`
}

// PassageKind distinguishes the structural units of a law.
type PassageKind string

// Passage kinds.
const (
	KindArticle  PassageKind = "article"
	KindAnnex    PassageKind = "annex"
	KindAppendix PassageKind = "appendix"
)

// Passage is one article, annex or appendix of a law.
type Passage struct {
	ID       string      `json:"id,omitempty"`
	Kind     PassageKind `json:"type,omitempty"`
	Title    string      `json:"title,omitempty"`
	Subtitle string      `json:"subtitle,omitempty"`
	Text     string      `json:"text"`
}

// StructuredDocument is the full text of a law split into its parts.
// The zero value (apart from CelexID) means the text is unavailable.
type StructuredDocument struct {
	CelexID    string    `json:"celex_id"`
	Header     string    `json:"header,omitempty"`
	Title      string    `json:"title,omitempty"`
	Preamble   string    `json:"preamble,omitempty"`
	Articles   []Passage `json:"articles,omitempty"`
	Annexes    []Passage `json:"annexes,omitempty"`
	Appendices []Passage `json:"appendices,omitempty"`
}

// IsEmpty reports whether the document carries no content at all.
func (d StructuredDocument) IsEmpty() bool {
	return d.Header == "" && d.Title == "" && d.Preamble == "" &&
		len(d.Articles) == 0 && len(d.Annexes) == 0 && len(d.Appendices) == 0
}

// ScoringPassages returns the passages that take part in relevance scoring:
// articles first, then annexes, each in document order.
func (d StructuredDocument) ScoringPassages() []Passage {
	out := make([]Passage, 0, len(d.Articles)+len(d.Annexes))
	out = append(out, d.Articles...)
	out = append(out, d.Annexes...)
	return out
}

// ScoredPassage is a passage that survived semantic filtering.
type ScoredPassage struct {
	Passage
	Score    float64 `json:"score"`
	CelexID  string  `json:"celex_id"`
	LawTitle string  `json:"law_title,omitempty"`
}

// ScoredDocument groups the surviving passages of one law.
type ScoredDocument struct {
	CelexID  string          `json:"celex_id"`
	Passages []ScoredPassage `json:"passages"`
}

// CleanArticles drops articles that are not top-level units of the law:
// articles without an id, sub-numbered ids ("3.1") and extraction artifacts
// whose subtitle repeats the whole text. Order is preserved.
func CleanArticles(articles []Passage) []Passage {
	if articles == nil {
		return nil
	}
	out := make([]Passage, 0, len(articles))
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		if strings.Contains(a.ID, ".") {
			continue
		}
		if a.Subtitle != "" && a.Subtitle == a.Text {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Clean returns a copy of d with CleanArticles applied.
func (d StructuredDocument) Clean() StructuredDocument {
	d.Articles = CleanArticles(d.Articles)
	return d
}
