package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 1000, cfg.Cache.MaxItems)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, 5*time.Minute, cfg.History.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "medrag-query-resolver", cfg.MCP.ServerName)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medrag.yaml")
	content := `
environment: production
server:
  port: 9000
cache:
  max_items: 50
  ttl: 10m
history:
  driver: postgres
  database_url: postgres://medrag@db/medrag?sslmode=disable
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("MEDRAG_SERVER_PORT", "9100")

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9100, cfg.Server.Port, "environment overrides file")
	assert.Equal(t, 50, m.GetCacheConfig().MaxItems)
	assert.Equal(t, 10*time.Minute, m.GetCacheConfig().TTL)
	assert.Equal(t, "postgres", m.GetHistoryConfig().Driver)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"MEDRAG_SERVER_PORT": "70000"}, "invalid server port"},
		{"bad driver", map[string]string{"MEDRAG_HISTORY_DRIVER": "mongo"}, "invalid history driver"},
		{"postgres without url", map[string]string{"MEDRAG_HISTORY_DRIVER": "postgres"}, "database_url is required"},
		{"bad level", map[string]string{"MEDRAG_LOGGING_LEVEL": "loud"}, "invalid log level"},
		{"bad format", map[string]string{"MEDRAG_LOGGING_FORMAT": "xml"}, "invalid log format"},
		{"zero burst", map[string]string{"MEDRAG_RATE_LIMIT_BURST": "0"}, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			m, err := NewManager("")
			require.NoError(t, err)

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_Reload(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)
	assert.Equal(t, 8080, m.GetServerConfig().Port)

	t.Setenv("MEDRAG_SERVER_PORT", "8181")
	require.NoError(t, m.Reload())
	assert.Equal(t, 8181, m.GetServerConfig().Port)
}
