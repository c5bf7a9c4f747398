// Package prompt renders LLM prompts from templates with named slots.
//
// Slots are written as {name}; a literal brace is written twice ({{ or }}).
// The slot set of every template is known at parse time, and Render fails
// with domain.ErrMissingSlot instead of sending a half-filled prompt.
package prompt

import (
	"embed"
	"fmt"
	"strings"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// Slot names a template variable.
type Slot string

// Known slots.
const (
	SlotInitialQuery   Slot = "initial_query"
	SlotUserQuery      Slot = "user_query"
	SlotSummarizedLaws Slot = "summarized_laws"
)

//go:embed templates/*.txt
var builtin embed.FS

// Template is a parsed prompt.
type Template struct {
	name  string
	parts []part
	slots []Slot
}

// part is either literal text or a slot reference.
type part struct {
	text string
	slot Slot
}

// Parse compiles text into a Template.
func Parse(name, text string) (*Template, error) {
	t := &Template{name: name}
	seen := make(map[Slot]bool)
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("template %s: unclosed '{' at offset %d", name, i)
			}
			slot := Slot(text[i+1 : i+1+end])
			if !validSlotName(string(slot)) {
				return nil, fmt.Errorf("template %s: invalid slot name %q", name, slot)
			}
			flush()
			t.parts = append(t.parts, part{slot: slot})
			if !seen[slot] {
				seen[slot] = true
				t.slots = append(t.slots, slot)
			}
			i += end + 1
		case c == '}':
			return nil, fmt.Errorf("template %s: single '}' at offset %d", name, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(name, text string) *Template {
	t, err := Parse(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Slots returns the slots the template references, in order of first use.
func (t *Template) Slots() []Slot {
	out := make([]Slot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Render substitutes values into the template. Every slot must be present;
// values for unknown slots are ignored.
func (t *Template) Render(values map[Slot]string) (string, error) {
	for _, s := range t.slots {
		if _, ok := values[s]; !ok {
			return "", fmt.Errorf("template %s: slot %q: %w", t.name, s, domain.ErrMissingSlot)
		}
	}
	var b strings.Builder
	for _, p := range t.parts {
		if p.slot != "" {
			b.WriteString(values[p.slot])
			continue
		}
		b.WriteString(p.text)
	}
	return b.String(), nil
}

func validSlotName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Rewrite returns the built-in question rewriting template.
func Rewrite() *Template {
	return mustBuiltin("rewrite")
}

// Answer returns the built-in answer generation template.
func Answer() *Template {
	return mustBuiltin("answer")
}

// Load parses the template at path, or the built-in named fallback when path
// is empty. It checks that the template uses exactly the expected slots.
func Load(path, fallback string, readFile func(string) ([]byte, error), expected ...Slot) (*Template, error) {
	var t *Template
	if path == "" {
		t = mustBuiltin(fallback)
	} else {
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", path, err)
		}
		t, err = Parse(path, string(data))
		if err != nil {
			return nil, err
		}
	}
	if err := t.requireSlots(expected); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Template) requireSlots(expected []Slot) error {
	want := make(map[Slot]bool, len(expected))
	for _, s := range expected {
		want[s] = true
	}
	have := make(map[Slot]bool, len(t.slots))
	for _, s := range t.slots {
		if !want[s] {
			return fmt.Errorf("template %s uses unknown slot %q", t.name, s)
		}
		have[s] = true
	}
	for _, s := range expected {
		if !have[s] {
			return fmt.Errorf("template %s does not use slot %q", t.name, s)
		}
	}
	return nil
}

func mustBuiltin(name string) *Template {
	data, err := builtin.ReadFile("templates/" + name + ".txt")
	if err != nil {
		panic(fmt.Sprintf("builtin template %s: %v", name, err))
	}
	return MustParse(name, string(data))
}
