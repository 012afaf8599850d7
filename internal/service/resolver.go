package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/knowledge"
	"github.com/medrag-mcp-server/pkg/lexicon"
)

// Resolver runs the resolution cascade: direct match, alias, keyword
// overlap, then a synthesized fallback. Every non-empty query resolves.
type Resolver struct {
	logger      *logrus.Logger
	catalog     *knowledge.Catalog
	classifier  *CategoryClassifier
	matcher     *OverlapMatcher
	synthesizer *FallbackSynthesizer
	cache       domain.ResultCache
}

var _ domain.QueryResolver = (*Resolver)(nil)

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache makes the resolver read through cache, keyed by normalized query text.
func WithCache(cache domain.ResultCache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// NewResolver creates a resolver over catalog.
func NewResolver(catalog *knowledge.Catalog, logger *logrus.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	r := &Resolver{
		logger:      logger,
		catalog:     catalog,
		classifier:  NewCategoryClassifier(catalog.Rules),
		matcher:     NewOverlapMatcher(catalog.Base.Entries()),
		synthesizer: NewFallbackSynthesizer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve converts raw into a structured answer. The only error is
// *domain.EmptyQueryError for a query without searchable terms.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*domain.ResolutionResult, error) {
	startTime := time.Now()

	q, err := lexicon.Normalize(raw)
	if err != nil {
		r.logger.WithField("query", raw).Debug("Rejected query without searchable terms")
		return nil, err
	}

	// Fallback subjects keep the caller's spelling, so only curated
	// answers are shared across queries with the same normalized text.
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, q.Text); ok && cached.Stage.IsCurated() {
			r.logger.WithFields(logrus.Fields{
				"query": q.Text,
				"stage": cached.Stage,
			}).Debug("Resolution served from cache")
			return cloneResult(cached), nil
		}
	}

	result := r.resolve(q)

	if r.cache != nil && result.Stage.IsCurated() {
		r.cache.Add(ctx, q.Text, result)
	}

	fields := logrus.Fields(result.LogFields())
	fields["query"] = q.Text
	fields["duration"] = time.Since(startTime)
	r.logger.WithFields(fields).Debug("Query resolved")

	return result, nil
}

func (r *Resolver) resolve(q domain.NormalizedQuery) *domain.ResolutionResult {
	if entry, ok := r.catalog.Base.LookupDirect(q); ok {
		return r.curated(entry, domain.StageDirect, 1)
	}

	if canonical, alias, ok := r.catalog.Aliases.ResolveAlias(q); ok {
		entry, err := r.catalog.Base.ByCanonical(canonical)
		if err == nil {
			return r.curated(entry, domain.StageAlias, 1)
		}
		// Validated catalogs never get here.
		r.logger.WithError(err).WithField("alias", alias).Warn("Alias targets a missing entry")
	}

	if match, ok := r.matcher.Match(lexicon.ContentTokens(q)); ok {
		r.logger.WithFields(logrus.Fields{
			"entry":   match.Entry.Name,
			"matched": match.Matched,
			"score":   match.Score,
		}).Debug("Keyword overlap match")
		return r.curated(match.Entry, domain.StageFuzzy, match.Score)
	}

	category := r.classifier.Classify(q)
	return r.synthesizer.Synthesize(lexicon.Subject(q), category, r.classifier.Modifiers(q)...)
}

func (r *Resolver) curated(entry *domain.KnowledgeEntry, stage domain.Stage, score float64) *domain.ResolutionResult {
	return cloneResult(&domain.ResolutionResult{
		Subject:    entry.Name,
		Stage:      stage,
		Category:   r.EntryCategory(entry),
		Confidence: stage.Confidence(),
		Score:      score,
		Sections:   entry.Sections,
		Citations:  entry.Citations,
	})
}

// EntryCategory returns the curated category of entry, classifying its
// name when the data leaves it blank.
func (r *Resolver) EntryCategory(entry *domain.KnowledgeEntry) domain.Category {
	if entry.Category != "" {
		return entry.Category
	}
	return r.classifier.Classify(lexicon.MustNormalize(entry.Name))
}

// cloneResult copies the slices so callers cannot alter shared tables or cache entries.
func cloneResult(in *domain.ResolutionResult) *domain.ResolutionResult {
	out := *in
	out.Sections = append([]domain.Section(nil), in.Sections...)
	out.Citations = append([]domain.Citation(nil), in.Citations...)
	return &out
}

// Classification is the category view of a query.
type Classification struct {
	Category  domain.Category   `json:"category"`
	Trigger   string            `json:"trigger,omitempty"`
	Acute     bool              `json:"acute"`
	Modifiers []domain.Modifier `json:"modifiers,omitempty"`
	Subject   string            `json:"subject"`
}

// Classify reports the category a fallback answer for raw would use.
func (r *Resolver) Classify(raw string) (*Classification, error) {
	q, err := lexicon.Normalize(raw)
	if err != nil {
		return nil, err
	}
	category, trigger := r.classifier.ClassifyWithTrigger(q)
	return &Classification{
		Category:  category,
		Trigger:   trigger,
		Acute:     category.IsAcute(),
		Modifiers: r.classifier.Modifiers(q),
		Subject:   lexicon.Subject(q),
	}, nil
}

// Catalog returns the knowledge tables the resolver reads.
func (r *Resolver) Catalog() *knowledge.Catalog {
	return r.catalog
}
