// Package corpus loads the legal corpus the lexical indexes are built from.
package corpus

import (
	"fmt"

	"github.com/kailas-cloud/eulex/internal/domain"
	"github.com/kailas-cloud/eulex/internal/domain/law"
)

// Corpus is the process-wide, read-only set of laws.
type Corpus struct {
	docs []law.Document
	byID map[string]int
}

// New builds a corpus from docs. Documents without an id are rejected;
// duplicate ids keep the first occurrence.
func New(docs []law.Document) (*Corpus, error) {
	c := &Corpus{
		docs: make([]law.Document, 0, len(docs)),
		byID: make(map[string]int, len(docs)),
	}
	for i, d := range docs {
		if d.CelexID == "" {
			return nil, fmt.Errorf("document %d has no celex id: %w", i, domain.ErrCorpusUnavailable)
		}
		if _, dup := c.byID[d.CelexID]; dup {
			continue
		}
		c.byID[d.CelexID] = len(c.docs)
		c.docs = append(c.docs, d)
	}
	if len(c.docs) == 0 {
		return nil, fmt.Errorf("corpus is empty: %w", domain.ErrCorpusUnavailable)
	}
	return c, nil
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// At returns the document at corpus position i.
func (c *Corpus) At(i int) law.Document { return c.docs[i] }

// Documents returns the documents in corpus order. Callers must not modify it.
func (c *Corpus) Documents() []law.Document { return c.docs }

// Get looks up a document by CELEX id.
func (c *Corpus) Get(id string) (law.Document, bool) {
	i, ok := c.byID[id]
	if !ok {
		return law.Document{}, false
	}
	return c.docs[i], true
}

// Titles maps each known id in ids to its title.
func (c *Corpus) Titles(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if d, ok := c.Get(id); ok {
			out[id] = d.Title
		}
	}
	return out
}
