// Package knowledge loads the curated clinical knowledge base, its alias
// table and the ordered category rules. The data ships embedded in the
// binary and can be replaced by a directory holding the same three files.
package knowledge

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medrag-mcp-server/internal/domain"
)

//go:embed data/*.yaml
var embedded embed.FS

const (
	ConditionsFile = "conditions.yaml"
	AliasesFile    = "aliases.yaml"
	CategoriesFile = "categories.yaml"
)

// Dataset is the raw content of the three knowledge files.
type Dataset struct {
	Conditions []domain.KnowledgeEntry `yaml:"conditions"`
	Aliases    []domain.AliasEntry     `yaml:"aliases"`
	Rules      []domain.CategoryRule   `yaml:"rules"`
	Source     string                  `yaml:"-"`
}

// Load reads the knowledge files from dataDir, or the embedded copy when
// dataDir is empty. Decoding is strict: unknown fields are rejected.
func Load(dataDir string) (*Dataset, error) {
	if dataDir == "" {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded knowledge data: %w", err)
		}
		return LoadFS(sub, "embedded")
	}

	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, domain.NewConfigurationError(dataDir, err)
	}
	if !info.IsDir() {
		return nil, domain.NewConfigurationError(dataDir, nil, "knowledge data path is not a directory")
	}
	return LoadFS(os.DirFS(dataDir), dataDir)
}

// LoadFS reads the knowledge files from fsys. source names fsys in errors.
func LoadFS(fsys fs.FS, source string) (*Dataset, error) {
	ds := &Dataset{Source: source}

	var conditions struct {
		Conditions []domain.KnowledgeEntry `yaml:"conditions"`
	}
	if err := decodeFile(fsys, ConditionsFile, &conditions); err != nil {
		return nil, domain.NewConfigurationError(source+"/"+ConditionsFile, err)
	}
	ds.Conditions = conditions.Conditions

	var aliases struct {
		Aliases []domain.AliasEntry `yaml:"aliases"`
	}
	if err := decodeFile(fsys, AliasesFile, &aliases); err != nil {
		return nil, domain.NewConfigurationError(source+"/"+AliasesFile, err)
	}
	ds.Aliases = aliases.Aliases

	var rules struct {
		Rules []domain.CategoryRule `yaml:"rules"`
	}
	if err := decodeFile(fsys, CategoriesFile, &rules); err != nil {
		return nil, domain.NewConfigurationError(source+"/"+CategoriesFile, err)
	}
	ds.Rules = rules.Rules

	// Citations without an explicit kind are curated references.
	for i := range ds.Conditions {
		for j := range ds.Conditions[i].Citations {
			if ds.Conditions[i].Citations[j].Kind == "" {
				ds.Conditions[i].Citations[j].Kind = domain.CitationAuthoritative
			}
		}
	}

	return ds, nil
}

func decodeFile(fsys fs.FS, name string, into any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s is empty", name)
		}
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
