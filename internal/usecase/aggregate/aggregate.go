// Package aggregate assembles scored passages into a word-budgeted context
// grouped by law.
package aggregate

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
	"github.com/kailas-cloud/eulex/internal/lawjson"
	"github.com/kailas-cloud/eulex/internal/logger"
	"github.com/kailas-cloud/eulex/internal/metrics"
)

const (
	passageSep = "\n\n"
	groupSep   = "\n\n\n"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// CountWords returns the number of maximal runs of letters, digits or '_'.
func CountWords(s string) int {
	return len(wordRe.FindAllStringIndex(s, -1))
}

// Group is the included passages of one law, in score order.
type Group struct {
	CelexID  string              `json:"celex_id"`
	Title    string              `json:"title"`
	Passages []law.ScoredPassage `json:"passages"`
}

// Context is the aggregation result.
type Context struct {
	// Passages in global descending score order.
	Passages   []law.ScoredPassage `json:"passages"`
	Groups     []Group             `json:"groups"`
	Text       string              `json:"text"`
	TotalWords int                 `json:"total_words"` // words in Text
}

// Aggregator applies the word floor and cap.
type Aggregator struct {
	minWords     int
	maxWords     int
	unknownTitle string
	logger       *zap.Logger
}

// New creates an aggregator. minWords < 0 disables the floor; maxWords <= 0
// uses domain.DefaultMaxContextWords.
func New(minWords, maxWords int, logger *zap.Logger) *Aggregator {
	if minWords < 0 {
		minWords = 0
	}
	if maxWords <= 0 {
		maxWords = domain.DefaultMaxContextWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		minWords:     minWords,
		maxWords:     maxWords,
		unknownTitle: domain.DefaultUnknownLawTitle,
		logger:       logger,
	}
}

type entry struct {
	p     law.ScoredPassage
	words int
}

type passageKey struct {
	celexID, id, text string
}

// Aggregate flattens docs, drops passages under the word floor, takes the
// longest score-ordered prefix that fits the word cap and renders it grouped
// by law. The cap covers the rendered text, law headings included. titles maps CELEX ids to law titles. A passage repeated within
// the input is kept once.
func (a *Aggregator) Aggregate(docs []law.ScoredDocument, titles map[string]string) Context {
	var flat []entry
	seen := make(map[passageKey]struct{})
	for _, d := range docs {
		ps := slices.Clone(d.Passages)
		slices.SortStableFunc(ps, byScoreDesc)

		title, ok := titles[d.CelexID]
		if !ok {
			title = a.unknownTitle
		}
		for _, p := range ps {
			if p.CelexID == "" {
				p.CelexID = d.CelexID
			}
			p.LawTitle = title
			k := passageKey{p.CelexID, p.ID, p.Text}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			words := CountWords(p.Text)
			if words < a.minWords {
				continue
			}
			flat = append(flat, entry{p: p, words: words})
		}
	}

	slices.SortStableFunc(flat, func(x, y entry) int { return byScoreDesc(x.p, y.p) })

	// A law's heading is charged with its first rendered passage, so the
	// rendered text never exceeds the cap.
	var ctx Context
	headed := make(map[string]struct{})
	for _, e := range flat {
		cost := e.words
		_, seenHead := headed[e.p.CelexID]
		if !seenHead && e.p.Text != "" {
			cost += CountWords(e.p.LawTitle)
		}
		if ctx.TotalWords+cost > a.maxWords {
			break
		}
		if !seenHead && e.p.Text != "" {
			headed[e.p.CelexID] = struct{}{}
		}
		ctx.TotalWords += cost
		ctx.Passages = append(ctx.Passages, e.p)
	}
	metrics.PipelinePassagesTotal.WithLabelValues("included").Add(float64(len(ctx.Passages)))

	ctx.Groups = group(ctx.Passages)
	ctx.Text = Render(ctx.Groups)
	return ctx
}

// AggregateSerialized decodes each document's passage payload with the
// repair fallback and aggregates the result. Undecodable documents are
// logged and skipped.
func (a *Aggregator) AggregateSerialized(
	ctx context.Context, docs []SerializedDocument, titles map[string]string,
) Context {
	log := logger.FromContextOr(ctx, a.logger)

	decoded := make([]law.ScoredDocument, 0, len(docs))
	for _, d := range docs {
		sd, err := d.Decode()
		if err != nil {
			log.Warn("Skipping malformed passage payload",
				zap.String("celex_id", d.CelexID),
				zap.String("payload_prefix", prefix(d.Payload, 200)),
				zap.Error(err),
			)
			continue
		}
		decoded = append(decoded, sd)
	}
	return a.Aggregate(decoded, titles)
}

// SerializedDocument is a law's scored passages in serialized form:
// {"articles": [{"id": ..., "text": ..., "score": ...}, ...]}.
type SerializedDocument struct {
	CelexID string `json:"celex_id"`
	Payload string `json:"filtered_json"`
}

type payload struct {
	Articles []law.ScoredPassage `json:"articles"`
}

// Decode parses the payload, attaching CelexID to every passage.
func (d SerializedDocument) Decode() (law.ScoredDocument, error) {
	var p payload
	if err := lawjson.Decode([]byte(d.Payload), &p); err != nil {
		return law.ScoredDocument{}, err //nolint:wrapcheck // already carries ErrMalformedPayload
	}
	for i := range p.Articles {
		p.Articles[i].CelexID = d.CelexID
	}
	return law.ScoredDocument{CelexID: d.CelexID, Passages: p.Articles}, nil
}

// Render joins groups as "title\n\npassage\n\npassage", separated by a
// double blank line. Passages with empty text are not rendered.
func Render(groups []Group) string {
	paragraphs := make([]string, 0, len(groups))
	for _, g := range groups {
		texts := make([]string, 0, len(g.Passages))
		for _, p := range g.Passages {
			if p.Text != "" {
				texts = append(texts, p.Text)
			}
		}
		if len(texts) == 0 {
			continue
		}
		paragraphs = append(paragraphs, strings.TrimSpace(g.Title)+passageSep+strings.Join(texts, passageSep))
	}
	return strings.Join(paragraphs, groupSep)
}

// group collects passages by law in order of first appearance.
func group(passages []law.ScoredPassage) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, p := range passages {
		i, ok := index[p.CelexID]
		if !ok {
			i = len(groups)
			index[p.CelexID] = i
			groups = append(groups, Group{CelexID: p.CelexID, Title: p.LawTitle})
		}
		groups[i].Passages = append(groups[i].Passages, p)
	}
	return groups
}

func byScoreDesc(x, y law.ScoredPassage) int {
	switch {
	case x.Score > y.Score:
		return -1
	case x.Score < y.Score:
		return 1
	default:
		return 0
	}
}

// prefix returns at most n bytes of s without splitting a character.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
