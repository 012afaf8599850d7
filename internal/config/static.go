package config

import (
	"strings"

	"github.com/medrag-mcp-server/internal/domain"
)

// Static serves a configuration built in code, such as one expanded from
// LiteConfig. Reload is a no-op.
type Static struct {
	config *domain.Config
}

// NewStatic wraps cfg as a ConfigManager.
func NewStatic(cfg *domain.Config) *Static {
	return &Static{config: cfg}
}

func (s *Static) GetConfig() *domain.Config             { return s.config }
func (s *Static) GetServerConfig() *domain.ServerConfig { return &s.config.Server }
func (s *Static) Reload() error                         { return nil }
func (s *Static) Validate() error                       { return ValidateConfig(s.config) }

func (s *Static) IsProduction() bool {
	return strings.ToLower(s.config.Environment) == "production"
}

func (s *Static) IsDevelopment() bool {
	env := strings.ToLower(s.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
