// Package lexicon turns free-text clinical queries into normalized token
// sequences and recovers the subject a caller is asking about.
package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/medrag-mcp-server/internal/domain"
)

// Normalize lowercases raw, folds compatibility forms and accents, treats
// every run of non-alphanumeric runes as a single separator and splits the
// result into tokens. It fails with *domain.EmptyQueryError when no token
// survives.
func Normalize(raw string) (domain.NormalizedQuery, error) {
	q := domain.NormalizedQuery{
		Raw:      raw,
		TokenSet: make(map[string]struct{}),
	}

	// Transformers carry state, so each call builds its own chain.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		span := raw[start:end]
		start = -1

		token := FoldToken(fold, span)
		if token == "" {
			return
		}
		q.Tokens = append(q.Tokens, token)
		q.Display = append(q.Display, span)
		q.Offsets = append(q.Offsets, [2]int{end - len(span), end})
		q.TokenSet[token] = struct{}{}
	}

	for i, r := range raw {
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(raw))

	if len(q.Tokens) == 0 {
		return domain.NormalizedQuery{}, &domain.EmptyQueryError{Raw: raw}
	}

	q.Text = strings.Join(q.Tokens, " ")
	return q, nil
}

// MustNormalize is Normalize for inputs known to contain a term, such as
// curated names and aliases. It panics on an empty input.
func MustNormalize(raw string) domain.NormalizedQuery {
	q, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return q
}

// Terms returns the normalized token sequence of s, or nil when s has no terms.
func Terms(s string) []string {
	q, err := Normalize(s)
	if err != nil {
		return nil
	}
	return q.Tokens
}

// FoldToken lowercases span and strips accents and anything that is not a
// letter or digit after folding.
func FoldToken(fold transform.Transformer, span string) string {
	folded, _, err := transform.String(fold, span)
	if err != nil {
		folded = span
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}
