package knowledge

import (
	"sort"
	"strings"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/pkg/lexicon"
)

// KnowledgeBase is the read-only table of curated answers.
// It is built once and safe for concurrent use.
type KnowledgeBase struct {
	entries []*domain.KnowledgeEntry
	byKey   map[string]*domain.KnowledgeEntry
	byText  map[string]*domain.KnowledgeEntry
	phrases []namePhrase
}

type namePhrase struct {
	tokens []string
	entry  *domain.KnowledgeEntry
}

// NewKnowledgeBase indexes entries by canonical name. Entries are copied;
// later changes to the slice do not affect the knowledge base.
func NewKnowledgeBase(entries []domain.KnowledgeEntry) *KnowledgeBase {
	kb := &KnowledgeBase{
		entries: make([]*domain.KnowledgeEntry, 0, len(entries)),
		byKey:   make(map[string]*domain.KnowledgeEntry, len(entries)),
		byText:  make(map[string]*domain.KnowledgeEntry, len(entries)),
	}

	for i := range entries {
		entry := entries[i]
		if _, dup := kb.byKey[entry.Key()]; dup {
			continue
		}
		kb.entries = append(kb.entries, &entry)
		kb.byKey[entry.Key()] = &entry

		tokens := lexicon.Terms(entry.Name)
		if len(tokens) == 0 {
			continue
		}
		kb.byText[strings.Join(tokens, " ")] = &entry
		kb.phrases = append(kb.phrases, namePhrase{tokens: tokens, entry: &entry})
	}

	// Longest name first, then lexical, so the first contained phrase wins.
	sort.SliceStable(kb.phrases, func(i, j int) bool {
		a, b := kb.phrases[i], kb.phrases[j]
		if len(a.tokens) != len(b.tokens) {
			return len(a.tokens) > len(b.tokens)
		}
		return a.entry.Key() < b.entry.Key()
	})

	return kb
}

// LookupDirect finds the entry whose canonical name is the query, or
// appears in it as a run of whole words.
func (kb *KnowledgeBase) LookupDirect(q domain.NormalizedQuery) (*domain.KnowledgeEntry, bool) {
	if entry, ok := kb.byText[q.Text]; ok {
		return entry, true
	}
	for _, p := range kb.phrases {
		if containsRun(q.Tokens, p.tokens) {
			return p.entry, true
		}
	}
	return nil, false
}

// ByCanonical returns the entry named name, compared case-insensitively.
func (kb *KnowledgeBase) ByCanonical(name string) (*domain.KnowledgeEntry, error) {
	if entry, ok := kb.byKey[domain.CanonicalKey(name)]; ok {
		return entry, nil
	}
	if entry, ok := kb.byText[strings.Join(lexicon.Terms(name), " ")]; ok {
		return entry, nil
	}
	return nil, &domain.UnknownCanonicalError{Name: name}
}

// Names returns every canonical name in lexical order.
func (kb *KnowledgeBase) Names() []string {
	names := make([]string, 0, len(kb.entries))
	for _, e := range kb.entries {
		names = append(names, e.Name)
	}
	sort.Slice(names, func(i, j int) bool {
		return domain.CanonicalKey(names[i]) < domain.CanonicalKey(names[j])
	})
	return names
}

// Entries returns the entries in file order.
func (kb *KnowledgeBase) Entries() []*domain.KnowledgeEntry {
	out := make([]*domain.KnowledgeEntry, len(kb.entries))
	copy(out, kb.entries)
	return out
}

// Len returns the number of curated entries.
func (kb *KnowledgeBase) Len() int {
	return len(kb.entries)
}

// containsRun reports whether needle occurs in haystack as contiguous elements.
func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
