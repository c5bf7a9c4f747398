package eulex

// Candidate is a law that passed lexical ranking, fusion and the score
// threshold. Rank is 0-based.
type Candidate struct {
	CelexID         string
	Title           string
	Score           float64
	Rank            int
	EurovocConcepts []string
}

// Passage is one article or annex included in a law context.
type Passage struct {
	CelexID  string
	LawTitle string
	ID       string
	Kind     string
	Text     string
	Score    float64
}

// LawContext is the outcome of one retrieval.
type LawContext struct {
	// Query is the text actually searched, after an optional rewrite.
	Query      string
	Candidates []Candidate
	// Passages in descending score order.
	Passages   []Passage
	Text       string
	TotalWords int
}

// Answer is a retrieval plus the chat model's reply.
type Answer struct {
	LawContext
	Text string
}
