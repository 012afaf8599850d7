package lexicon

import (
	"strings"

	"github.com/medrag-mcp-server/internal/domain"
)

// questionWords open a query without naming anything clinical.
var questionWords = map[string]struct{}{
	"what": {}, "whats": {}, "is": {}, "are": {}, "the": {}, "a": {}, "an": {},
	"how": {}, "to": {}, "do": {}, "does": {}, "can": {}, "should": {}, "i": {},
	"me": {}, "tell": {}, "explain": {}, "about": {}, "describe": {}, "of": {},
	"for": {}, "in": {}, "on": {}, "with": {}, "and": {}, "or": {}, "please": {},
	"treat": {}, "treating": {}, "manage": {}, "managing": {}, "diagnose": {},
	"which": {}, "when": {}, "why": {}, "best": {}, "latest": {}, "current": {},
}

// intentWords describe what the caller wants to know about a condition.
var intentWords = map[string]struct{}{
	"treatment": {}, "treatments": {}, "therapy": {}, "therapies": {},
	"management": {}, "protocol": {}, "protocols": {}, "guideline": {},
	"guidelines": {}, "guidance": {}, "symptoms": {}, "symptom": {},
	"signs": {}, "causes": {}, "cause": {}, "diagnosis": {}, "workup": {},
	"first": {}, "line": {}, "second": {}, "options": {}, "option": {},
	"drugs": {}, "drug": {}, "medication": {}, "medications": {},
	"approach": {}, "overview": {}, "prognosis": {}, "prevention": {},
	"recommendations": {}, "recommendation": {}, "plan": {}, "care": {},
	"disease": {}, "condition": {}, "disorder": {}, "syndrome": {},
	"adults": {}, "adult": {}, "patients": {}, "patient": {},
}

// subjectKeepers are intent words for scoring that still belong to a
// condition's name when they appear in a subject ("Kawasaki disease").
var subjectKeepers = map[string]struct{}{
	"disease": {}, "condition": {}, "disorder": {}, "syndrome": {},
}

// IsStopword reports whether token carries no clinical meaning for overlap scoring.
func IsStopword(token string) bool {
	if _, ok := questionWords[token]; ok {
		return true
	}
	_, ok := intentWords[token]
	return ok
}

// ContentTokens returns the query's token set without stopwords.
func ContentTokens(q domain.NormalizedQuery) map[string]struct{} {
	out := make(map[string]struct{}, len(q.TokenSet))
	for token := range q.TokenSet {
		if !IsStopword(token) {
			out[token] = struct{}{}
		}
	}
	return out
}

// Subject recovers the condition a query is about, in the caller's own
// spelling: leading question words and trailing intent words are dropped
// ("What is Kawasaki disease treatment protocol" -> "Kawasaki disease").
// When nothing would remain, the trimmed raw query is returned.
func Subject(q domain.NormalizedQuery) string {
	first, last := 0, len(q.Tokens)-1

	for first <= last && isLeadWord(q.Tokens[first]) {
		first++
	}
	for last >= first && isTrailWord(q.Tokens[last]) {
		last--
	}

	if first > last || len(q.Offsets) != len(q.Tokens) {
		return strings.TrimSpace(q.Raw)
	}
	return strings.TrimSpace(q.Raw[q.Offsets[first][0]:q.Offsets[last][1]])
}

func isLeadWord(token string) bool {
	if _, ok := questionWords[token]; ok {
		return true
	}
	_, ok := intentWords[token]
	if _, keep := subjectKeepers[token]; keep {
		return false
	}
	return ok
}

func isTrailWord(token string) bool {
	if _, keep := subjectKeepers[token]; keep {
		return false
	}
	return IsStopword(token)
}
