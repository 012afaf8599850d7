// Package config provides configuration management for the resolver.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/medrag-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir      string // Base directory for the history database and exports
	KnowledgeDir string // Optional override for the embedded knowledge data

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL
	RedisURL      string        // Optional shared cache tier

	// History
	HistoryEnabled bool

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".medrag")

	return &LiteConfig{
		DataDir:        dataDir,
		CacheMaxItems:  1000,
		CacheTTL:       time.Hour,
		HistoryEnabled: true,
		Transport:      "stdio",
		HTTPPort:       8080,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("MEDRAG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.KnowledgeDir = os.Getenv("MEDRAG_KNOWLEDGE_DIR")

	if v := os.Getenv("MEDRAG_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("MEDRAG_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	cfg.RedisURL = os.Getenv("MEDRAG_REDIS_URL")

	if v := os.Getenv("MEDRAG_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HistoryEnabled = b
		}
	}

	if v := os.Getenv("MEDRAG_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("MEDRAG_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("MEDRAG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MEDRAG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// ToConfig expands the lite settings into a full configuration.
func (c *LiteConfig) ToConfig() *domain.Config {
	driver := "sqlite"
	if !c.HistoryEnabled {
		driver = "none"
	}
	return &domain.Config{
		Environment: "development",
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           c.HTTPPort,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			RequestTimeout: 10 * time.Second,
		},
		Knowledge: domain.KnowledgeConfig{DataDir: c.KnowledgeDir},
		Cache: domain.CacheConfig{
			Enabled:    c.CacheMaxItems > 0,
			MaxItems:   c.CacheMaxItems,
			TTL:        c.CacheTTL,
			RedisURL:   c.RedisURL,
			PoolSize:   10,
			MaxRetries: 3,
		},
		History: domain.HistoryConfig{
			Driver:        driver,
			SQLitePath:    c.HistoryDBPath(),
			SummaryLength: 200,
		},
		RateLimit: domain.RateLimitConfig{Enabled: false},
		Logging: domain.LoggingConfig{
			Level:  c.LogLevel,
			Format: c.LogFormat,
			Output: "stderr",
		},
		MCP: domain.MCPConfig{
			ServerName:    "medrag-query-resolver",
			ServerVersion: "1.0.0",
		},
	}
}
