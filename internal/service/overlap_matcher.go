package service

import (
	"sort"

	"github.com/medrag-mcp-server/internal/domain"
)

// Overlap thresholds. The best-ranked entry is accepted only when the query
// shares at least MinOverlapTokens of its keywords and covers at least
// MinCoverage of them.
const (
	MinOverlapTokens = 2
	MinCoverage      = 0.30
)

// Match is a fuzzy hit on a curated entry.
type Match struct {
	Entry   *domain.KnowledgeEntry
	Score   float64
	Overlap int
	// Size is the number of distinct keywords on Entry.
	Size    int
	Matched []string
}

// Qualifies reports whether the match clears both thresholds.
func (m Match) Qualifies() bool {
	return m.Overlap >= MinOverlapTokens && m.Score >= MinCoverage
}

// OverlapMatcher scores curated entries by how many of their keywords a
// query contains.
type OverlapMatcher struct {
	entries []matcherEntry
}

type matcherEntry struct {
	entry    *domain.KnowledgeEntry
	keywords []string
}

// NewOverlapMatcher indexes entries. Keywords are deduplicated per entry.
func NewOverlapMatcher(entries []*domain.KnowledgeEntry) *OverlapMatcher {
	m := &OverlapMatcher{entries: make([]matcherEntry, 0, len(entries))}
	for _, e := range entries {
		seen := make(map[string]struct{}, len(e.Keywords))
		keywords := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
		}
		if len(keywords) == 0 {
			continue
		}
		m.entries = append(m.entries, matcherEntry{entry: e, keywords: keywords})
	}
	return m
}

// Match returns the best candidate for tokens, which should already be
// free of stopwords, provided it qualifies. A weaker candidate is never
// promoted when the best one falls short.
func (m *OverlapMatcher) Match(tokens map[string]struct{}) (*Match, bool) {
	candidates := m.Candidates(tokens)
	if len(candidates) == 0 || !candidates[0].Qualifies() {
		return nil, false
	}
	return &candidates[0], true
}

// Candidates returns every entry sharing at least one keyword with tokens,
// best first. Candidates rank by score, then by the smaller keyword set,
// then by canonical name.
func (m *OverlapMatcher) Candidates(tokens map[string]struct{}) []Match {
	if len(tokens) == 0 {
		return nil
	}

	var out []Match
	for _, me := range m.entries {
		var matched []string
		for _, kw := range me.keywords {
			if _, ok := tokens[kw]; ok {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, Match{
			Entry:   me.entry,
			Score:   float64(len(matched)) / float64(len(me.keywords)),
			Overlap: len(matched),
			Size:    len(me.keywords),
			Matched: matched,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Entry.Key() < b.Entry.Key()
	})
	return out
}
