package knowledge

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/pkg/lexicon"
)

const (
	minKeywords   = 2
	minPrefixStem = 3
)

// Validate checks the dataset for consistency and reports every problem
// in a single *domain.ConfigurationError.
func Validate(ds *Dataset) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(ds.Conditions) == 0 {
		add("no conditions defined")
	}
	names := make(map[string]struct{}, len(ds.Conditions))
	for i, c := range ds.Conditions {
		label := c.Name
		if strings.TrimSpace(c.Name) == "" {
			label = fmt.Sprintf("condition #%d", i+1)
			add("%s has no name", label)
		} else if len(lexicon.Terms(c.Name)) == 0 {
			add("condition %q has no searchable terms", c.Name)
		}
		if _, dup := names[c.Key()]; dup {
			add("duplicate condition %q", c.Name)
		}
		names[c.Key()] = struct{}{}

		if c.Category != "" && !c.Category.IsValid() {
			add("condition %q has unknown category %q", label, c.Category)
		}
		problems = append(problems, keywordProblems(label, c.Keywords)...)

		if len(c.Sections) == 0 {
			add("condition %q has no sections", label)
		}
		for _, s := range c.Sections {
			if strings.TrimSpace(s.Heading) == "" || strings.TrimSpace(s.Body) == "" {
				add("condition %q has a section with an empty heading or body", label)
			}
		}

		if len(c.Citations) == 0 {
			add("condition %q has no citations", label)
		}
		for _, cit := range c.Citations {
			if !cit.Kind.IsValid() {
				add("condition %q citation %q has unknown kind %q", label, cit.Label, cit.Kind)
			}
			if u, err := url.Parse(cit.URL); err != nil || u.Scheme == "" || u.Host == "" {
				add("condition %q citation %q has invalid url %q", label, cit.Label, cit.URL)
			}
		}
	}

	aliases := make(map[string]struct{}, len(ds.Aliases))
	for _, a := range ds.Aliases {
		terms := lexicon.Terms(a.Alias)
		if len(terms) == 0 {
			add("alias %q has no searchable terms", a.Alias)
			continue
		}
		key := strings.Join(terms, " ")
		if _, dup := aliases[key]; dup {
			add("duplicate alias %q", a.Alias)
		}
		aliases[key] = struct{}{}
		if _, ok := names[domain.CanonicalKey(a.Canonical)]; !ok {
			add("alias %q targets unknown condition %q", a.Alias, a.Canonical)
		}
	}

	if len(ds.Rules) == 0 {
		add("no category rules defined")
	}
	seen := make(map[domain.Category]struct{}, len(ds.Rules))
	for _, r := range ds.Rules {
		switch {
		case !r.Category.IsValid():
			add("category rule has unknown category %q", r.Category)
		case r.Category == domain.CategoryGeneral:
			add("category %q is the default and takes no rule", r.Category)
		}
		if _, dup := seen[r.Category]; dup {
			add("duplicate category rule %q", r.Category)
		}
		seen[r.Category] = struct{}{}

		if len(r.Keywords) == 0 {
			add("category rule %q has no keywords", r.Category)
		}
		for _, kw := range r.Keywords {
			stem, prefix := strings.CutSuffix(kw, "*")
			if !isNormalizedToken(stem) {
				add("category rule %q keyword %q is not a single lowercase word", r.Category, kw)
			} else if prefix && len(stem) < minPrefixStem {
				add("category rule %q prefix %q is shorter than %d letters", r.Category, kw, minPrefixStem)
			}
		}
	}

	if len(problems) > 0 {
		return domain.NewConfigurationError(ds.Source, nil, problems...)
	}
	return nil
}

func keywordProblems(label string, keywords []string) []string {
	var problems []string
	if len(keywords) < minKeywords {
		problems = append(problems, fmt.Sprintf("condition %q needs at least %d keywords", label, minKeywords))
	}
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		switch {
		case !isNormalizedToken(kw):
			problems = append(problems, fmt.Sprintf("condition %q keyword %q is not a single lowercase word", label, kw))
		case lexicon.IsStopword(kw):
			problems = append(problems, fmt.Sprintf("condition %q keyword %q is a stopword", label, kw))
		}
		if _, dup := seen[kw]; dup {
			problems = append(problems, fmt.Sprintf("condition %q repeats keyword %q", label, kw))
		}
		seen[kw] = struct{}{}
	}
	return problems
}

// isNormalizedToken reports whether s survives normalization unchanged as one token.
func isNormalizedToken(s string) bool {
	terms := lexicon.Terms(s)
	return len(terms) == 1 && terms[0] == s
}
