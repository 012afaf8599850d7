package lexicon

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// Normalization is deterministic and idempotent on its own output.
func TestProperty_NormalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.StringMatching(`[A-Za-z0-9 ,.'\-]{1,40}`).Draw(rt, "raw")

		first, err := Normalize(raw)
		if err != nil {
			return
		}
		second, err := Normalize(first.Text)
		if err != nil {
			rt.Fatalf("normalized text %q failed to re-normalize: %v", first.Text, err)
		}
		if first.Text != second.Text {
			rt.Fatalf("expected %q, got %q", first.Text, second.Text)
		}
	})
}

// Every token is non-empty lowercase alphanumeric and present in the token set.
func TestProperty_TokensWellFormed(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.String().Draw(rt, "raw")

		q, err := Normalize(raw)
		if err != nil {
			if len(q.Tokens) != 0 {
				rt.Fatalf("error result must not carry tokens")
			}
			return
		}
		if len(q.TokenSet) == 0 {
			rt.Fatalf("token set empty for non-empty query %q", raw)
		}
		for _, token := range q.Tokens {
			if token == "" {
				rt.Fatalf("empty token in %q", raw)
			}
			if token != strings.ToLower(token) {
				rt.Fatalf("token %q is not lowercase", token)
			}
			if strings.ContainsAny(token, " \t\n") {
				rt.Fatalf("token %q contains whitespace", token)
			}
			if !q.Has(token) {
				rt.Fatalf("token %q missing from set", token)
			}
		}
	})
}
