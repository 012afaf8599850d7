package knowledge

import (
	"sort"
	"strings"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/pkg/lexicon"
)

// AliasTable maps abbreviations and synonyms to canonical names.
type AliasTable struct {
	byText  map[string]string
	maxRun  int
	entries []domain.AliasEntry
}

// NewAliasTable indexes entries by their normalized alias text. The first
// entry wins when two aliases normalize to the same text.
func NewAliasTable(entries []domain.AliasEntry) *AliasTable {
	t := &AliasTable{byText: make(map[string]string, len(entries))}
	for _, e := range entries {
		tokens := lexicon.Terms(e.Alias)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if _, dup := t.byText[key]; dup {
			continue
		}
		t.byText[key] = e.Canonical
		t.entries = append(t.entries, e)
		if len(tokens) > t.maxRun {
			t.maxRun = len(tokens)
		}
	}
	return t
}

// Resolve returns the canonical name for the first alias found in q.
// The whole query is tried first, then runs of whole tokens from the
// longest down to single tokens, leftmost first within a length.
func (t *AliasTable) Resolve(q domain.NormalizedQuery) (string, bool) {
	canonical, _, ok := t.ResolveAlias(q)
	return canonical, ok
}

// ResolveAlias is Resolve that also reports which alias matched.
func (t *AliasTable) ResolveAlias(q domain.NormalizedQuery) (canonical, alias string, ok bool) {
	if c, found := t.byText[q.Text]; found {
		return c, q.Text, true
	}

	longest := t.maxRun
	if longest > len(q.Tokens) {
		longest = len(q.Tokens)
	}
	for size := longest; size >= 1; size-- {
		for i := 0; i+size <= len(q.Tokens); i++ {
			key := strings.Join(q.Tokens[i:i+size], " ")
			if c, found := t.byText[key]; found {
				return c, key, true
			}
		}
	}
	return "", "", false
}

// Entries returns the aliases sorted by alias text.
func (t *AliasTable) Entries() []domain.AliasEntry {
	out := make([]domain.AliasEntry, len(t.entries))
	copy(out, t.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// Len returns the number of distinct aliases.
func (t *AliasTable) Len() int {
	return len(t.byText)
}
