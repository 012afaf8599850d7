package knowledge

import (
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/domain"
)

// Catalog bundles the validated knowledge tables shared by the resolver
// and the transports.
type Catalog struct {
	Base    *KnowledgeBase
	Aliases *AliasTable
	Rules   []domain.CategoryRule
	Source  string
}

var _ domain.KnowledgeCatalog = (*Catalog)(nil)

// Open loads and validates the knowledge data under dataDir, or the
// embedded data when dataDir is empty.
func Open(dataDir string, logger *logrus.Logger) (*Catalog, error) {
	ds, err := Load(dataDir)
	if err != nil {
		return nil, err
	}
	catalog, err := FromDataset(ds)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"source":     catalog.Source,
			"conditions": catalog.Base.Len(),
			"aliases":    catalog.Aliases.Len(),
			"rules":      len(catalog.Rules),
		}).Info("Knowledge base loaded")
	}
	return catalog, nil
}

// FromDataset validates ds and builds the lookup tables.
func FromDataset(ds *Dataset) (*Catalog, error) {
	if err := Validate(ds); err != nil {
		return nil, err
	}

	rules := make([]domain.CategoryRule, len(ds.Rules))
	copy(rules, ds.Rules)

	return &Catalog{
		Base:    NewKnowledgeBase(ds.Conditions),
		Aliases: NewAliasTable(ds.Aliases),
		Rules:   rules,
		Source:  ds.Source,
	}, nil
}

// Names implements domain.KnowledgeCatalog.
func (c *Catalog) Names() []string {
	return c.Base.Names()
}

// ByCanonical implements domain.KnowledgeCatalog.
func (c *Catalog) ByCanonical(name string) (*domain.KnowledgeEntry, error) {
	return c.Base.ByCanonical(name)
}
