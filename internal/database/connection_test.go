package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
)

func TestConfigFromHistory(t *testing.T) {
	cfg := ConfigFromHistory(domain.HistoryConfig{DatabaseURL: "postgres://x"})
	assert.Equal(t, "postgres://x", cfg.URL)
	assert.Equal(t, int32(25), cfg.MaxConns)
	assert.Equal(t, int32(0), cfg.MinConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLife)

	cfg = ConfigFromHistory(domain.HistoryConfig{MaxOpenConns: 4, MaxIdleConns: 10, ConnMaxLifetime: time.Minute})
	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(0), cfg.MinConns, "idle above max is reset")
	assert.Equal(t, time.Minute, cfg.MaxConnLife)
}

func TestNewConnection_RequiresURL(t *testing.T) {
	_, err := NewConnection(context.Background(), Config{}, logrus.New())
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_query_history.up.sql")
	assert.Contains(t, names, "000001_create_query_history.down.sql")
}

func TestDatabaseConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	url, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := Bootstrap(ctx, domain.HistoryConfig{DatabaseURL: url, MaxOpenConns: 10, MaxIdleConns: 2}, logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Health(ctx))
	stats := db.Stats()
	assert.Greater(t, stats.TotalConns(), int32(0))

	// Running again is a no-op.
	require.NoError(t, Migrate(ctx, url, "", logger))

	store, err := history.NewPostgresStore(db.SQL())
	require.NoError(t, err)
	defer store.Close()

	result := &domain.ResolutionResult{
		Subject:    "Hypertension",
		Stage:      domain.StageAlias,
		Category:   domain.CategoryCardiovascular,
		Confidence: domain.HIGH,
		Sections:   []domain.Section{{Heading: "Clinical Overview", Body: "Raised blood pressure."}},
	}
	record := history.NewRecord("clinician", "HTN management", result, 0)
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hypertension", got.Subject)
	assert.Equal(t, domain.StageAlias, got.Stage)

	counts, err := store.StageCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.StageAlias])

	runner, err := NewMigrationRunner(url, "", logger)
	require.NoError(t, err)
	defer runner.Close()
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
