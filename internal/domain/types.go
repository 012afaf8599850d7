// Package domain contains the core entities of the clinical query resolver:
// normalized queries, curated knowledge entries, aliases, category rules and
// the unified resolution result returned to every caller.
package domain

import (
	"errors"
	"strings"
)

// Stage identifies which step of the resolution cascade produced an answer.
type Stage string

const (
	StageDirect   Stage = "direct"
	StageAlias    Stage = "alias"
	StageFuzzy    Stage = "fuzzy"
	StageFallback Stage = "fallback"
)

// Stages lists every stage in cascade order.
var Stages = []Stage{StageDirect, StageAlias, StageFuzzy, StageFallback}

// IsValid reports whether the stage is one of the four cascade stages.
func (s Stage) IsValid() bool {
	switch s {
	case StageDirect, StageAlias, StageFuzzy, StageFallback:
		return true
	default:
		return false
	}
}

// String returns the wire form of the stage.
func (s Stage) String() string {
	return string(s)
}

// IsCurated reports whether the answer came from the curated knowledge base.
func (s Stage) IsCurated() bool {
	return s == StageDirect || s == StageAlias || s == StageFuzzy
}

// Confidence returns the confidence label reported alongside a result.
// Exact and alias hits are High; overlap matches and synthesized answers are Moderate.
func (s Stage) Confidence() ConfidenceLevel {
	switch s {
	case StageDirect, StageAlias:
		return HIGH
	default:
		return MODERATE
	}
}

// ConfidenceLevel is the coarse confidence label shown to callers.
type ConfidenceLevel string

const (
	HIGH     ConfidenceLevel = "High"
	MODERATE ConfidenceLevel = "Moderate"
)

// String returns the label.
func (c ConfidenceLevel) String() string {
	return string(c)
}

// Category is a coarse clinical classification driving fallback section selection.
type Category string

const (
	CategoryOncology            Category = "Oncology"
	CategoryInfectiousSevere    Category = "Infectious-Severe"
	CategoryCardiovascularAcute Category = "Cardiovascular-Acute"
	CategoryInfectious          Category = "Infectious"
	CategoryCardiovascular      Category = "Cardiovascular"
	CategoryMentalHealth        Category = "Mental-Health"
	CategoryAutoimmune          Category = "Autoimmune"
	CategoryRespiratory         Category = "Respiratory"
	CategoryEndocrine           Category = "Endocrine"
	CategoryNeurological        Category = "Neurological"
	CategoryGeneral             Category = "General"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryOncology, CategoryInfectiousSevere, CategoryCardiovascularAcute,
		CategoryInfectious, CategoryCardiovascular, CategoryMentalHealth,
		CategoryAutoimmune, CategoryRespiratory, CategoryEndocrine,
		CategoryNeurological, CategoryGeneral:
		return true
	default:
		return false
	}
}

// IsAcute reports whether answers in this category carry emergency considerations.
func (c Category) IsAcute() bool {
	return c == CategoryInfectiousSevere || c == CategoryCardiovascularAcute
}

// IsOncologic reports whether answers in this category carry diagnosis and staging.
func (c Category) IsOncologic() bool {
	return c == CategoryOncology
}

// String returns the category tag.
func (c Category) String() string {
	return string(c)
}

// Modifier adjusts a synthesized answer independently of its category.
type Modifier string

const (
	ModifierPaediatric Modifier = "paediatric"
)

// CitationKind distinguishes curated references from generated search links.
type CitationKind string

const (
	CitationAuthoritative CitationKind = "authoritative"
	CitationSearch        CitationKind = "search"
)

// IsValid reports whether k is a known citation kind.
func (k CitationKind) IsValid() bool {
	return k == CitationAuthoritative || k == CitationSearch
}

// NormalizedQuery is the lexical view of a raw query.
// Tokens keeps order and duplicates; TokenSet removes duplicates.
// Display holds the same tokens with the caller's original casing, and
// Offsets their byte spans in Raw.
type NormalizedQuery struct {
	Raw      string              `json:"raw"`
	Text     string              `json:"text"`
	Tokens   []string            `json:"tokens"`
	TokenSet map[string]struct{} `json:"-"`
	Display  []string            `json:"-"`
	Offsets  [][2]int            `json:"-"`
}

// Has reports whether token occurs in the query.
func (q NormalizedQuery) Has(token string) bool {
	_, ok := q.TokenSet[token]
	return ok
}

// Section is one headed block of a clinical answer.
type Section struct {
	Heading string `json:"heading" yaml:"heading"`
	Body    string `json:"body" yaml:"body"`
}

// Citation is a reference attached to an answer.
type Citation struct {
	Label string       `json:"label" yaml:"label"`
	Title string       `json:"title,omitempty" yaml:"title"`
	URL   string       `json:"url" yaml:"url"`
	Kind  CitationKind `json:"kind" yaml:"kind"`
}

// KnowledgeEntry is a curated, pre-authored answer keyed by canonical name.
type KnowledgeEntry struct {
	Name      string     `json:"name" yaml:"name"`
	Category  Category   `json:"category,omitempty" yaml:"category"`
	Keywords  []string   `json:"keywords" yaml:"keywords"`
	Sections  []Section  `json:"sections" yaml:"sections"`
	Citations []Citation `json:"citations" yaml:"citations"`
}

// Key returns the case-insensitive lookup key of the entry.
func (e *KnowledgeEntry) Key() string {
	return CanonicalKey(e.Name)
}

// AliasEntry maps an abbreviation or synonym to a canonical name.
type AliasEntry struct {
	Alias     string `json:"alias" yaml:"alias"`
	Canonical string `json:"canonical" yaml:"canonical"`
}

// CategoryRule assigns Category when any keyword occurs in the query.
// A keyword ending in '*' matches any token starting with the stem.
type CategoryRule struct {
	Category Category `json:"category" yaml:"category"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ResolutionResult is the single output contract of the cascade.
type ResolutionResult struct {
	Subject    string          `json:"subject"`
	Stage      Stage           `json:"stage"`
	Category   Category        `json:"category,omitempty"`
	Confidence ConfidenceLevel `json:"confidence"`
	Score      float64         `json:"score,omitempty"`
	Sections   []Section       `json:"sections"`
	Citations  []Citation      `json:"citations"`
}

// Summary returns the first section body truncated to n runes, used by history records.
func (r *ResolutionResult) Summary(n int) string {
	if len(r.Sections) == 0 {
		return ""
	}
	body := []rune(r.Sections[0].Body)
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n])
}

// LogFields returns structured logging fields for audit trails.
func (r *ResolutionResult) LogFields() map[string]any {
	return map[string]any{
		"subject":    r.Subject,
		"stage":      r.Stage.String(),
		"category":   r.Category.String(),
		"confidence": r.Confidence.String(),
		"score":      r.Score,
		"sections":   len(r.Sections),
		"citations":  len(r.Citations),
	}
}

// CanonicalKey folds a canonical name or alias into its lookup form.
func CanonicalKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Sentinel errors used with errors.Is.
var (
	ErrNotFound = errors.New("not found")
)
