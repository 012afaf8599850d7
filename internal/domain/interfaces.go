package domain

import (
	"context"
)

// QueryResolver converts a raw clinical query into a structured answer.
// Implementations never fail for a non-empty query.
type QueryResolver interface {
	Resolve(ctx context.Context, raw string) (*ResolutionResult, error)
}

// KnowledgeCatalog exposes read-only views over the curated knowledge base.
type KnowledgeCatalog interface {
	Names() []string
	ByCanonical(name string) (*KnowledgeEntry, error)
}

// ResultCache stores prior resolutions keyed by normalized query text.
// A cache never changes what Resolve returns.
type ResultCache interface {
	Get(ctx context.Context, key string) (*ResolutionResult, bool)
	Add(ctx context.Context, key string, result *ResolutionResult)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
