package service

import (
	"strings"

	"github.com/medrag-mcp-server/internal/domain"
)

// CategoryClassifier assigns a coarse clinical category to a query using
// an ordered list of keyword rules. The first matching rule wins.
type CategoryClassifier struct {
	rules []compiledRule
}

type compiledRule struct {
	category domain.Category
	exact    map[string]struct{}
	prefixes []string
}

// paediatricTerms trigger the paediatric modifier on synthesized answers.
var paediatricTerms = []string{
	"child", "children", "childhood", "infant", "infants", "baby", "babies",
	"neonate", "neonates", "neonatal", "newborn", "newborns", "toddler",
	"paediatric", "pediatric", "paediatrics", "pediatrics", "adolescent",
	"adolescents", "teen", "teenager", "kid", "kids",
}

// NewCategoryClassifier compiles rules. A keyword ending in '*' becomes a
// prefix that matches whole tokens starting with the stem.
func NewCategoryClassifier(rules []domain.CategoryRule) *CategoryClassifier {
	c := &CategoryClassifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{
			category: r.Category,
			exact:    make(map[string]struct{}, len(r.Keywords)),
		}
		for _, kw := range r.Keywords {
			if stem, ok := strings.CutSuffix(kw, "*"); ok {
				cr.prefixes = append(cr.prefixes, stem)
				continue
			}
			cr.exact[kw] = struct{}{}
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Classify returns the category of the first rule with a keyword present
// in q, or General when none matches.
func (c *CategoryClassifier) Classify(q domain.NormalizedQuery) domain.Category {
	category, _ := c.ClassifyWithTrigger(q)
	return category
}

// ClassifyWithTrigger is Classify that also returns the query token that
// selected the category. The token is empty for General.
func (c *CategoryClassifier) ClassifyWithTrigger(q domain.NormalizedQuery) (domain.Category, string) {
	for _, rule := range c.rules {
		// Walk tokens in query order so the trigger is deterministic.
		for _, token := range q.Tokens {
			if rule.matches(token) {
				return rule.category, token
			}
		}
	}
	return domain.CategoryGeneral, ""
}

// Modifiers returns the modifiers implied by q.
func (c *CategoryClassifier) Modifiers(q domain.NormalizedQuery) []domain.Modifier {
	for _, term := range paediatricTerms {
		if q.Has(term) {
			return []domain.Modifier{domain.ModifierPaediatric}
		}
	}
	return nil
}

func (r compiledRule) matches(token string) bool {
	if _, ok := r.exact[token]; ok {
		return true
	}
	for _, stem := range r.prefixes {
		if strings.HasPrefix(token, stem) {
			return true
		}
	}
	return false
}
