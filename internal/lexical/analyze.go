package lexical

import (
	"regexp"
	"strings"
)

var disallowed = regexp.MustCompile(`[^A-Za-z0-9\s]`)

// Sanitize strips every character outside [A-Za-z0-9\s] from a query.
// Accented letters are removed, not folded: "é" disappears.
func Sanitize(query string) string {
	return disallowed.ReplaceAllString(query, "")
}

// Tokenize lowercases text, splits it on anything that is not an ASCII
// letter or digit and drops English stopwords. Documents and queries go
// through the same analyzer.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// stopwords is the classic English stop list used by Terrier-style indexers.
var stopwords = func() map[string]struct{} {
	words := strings.Fields(`
a about above after again against all am an and any are as at
be because been before being below between both but by
can could
did do does doing down during
each
few for from further
had has have having he her here hers herself him himself his how
i if in into is it its itself
just
me more most my myself
no nor not now
of off on once only or other our ours ourselves out over own
same she should so some such
than that the their theirs them themselves then there these they this those through to too
under until up
very
was we were what when where which while who whom why will with would
you your yours yourself yourselves`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
