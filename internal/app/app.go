// Package app assembles the resolver and its supporting stores from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/caching"
	"github.com/medrag-mcp-server/internal/database"
	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/knowledge"
	"github.com/medrag-mcp-server/internal/service"
)

// App holds the assembled components. Cache and History may be nil.
type App struct {
	Config   *domain.Config
	Logger   *logrus.Logger
	Catalog  *knowledge.Catalog
	Resolver *service.Resolver
	Cache    *caching.ResolutionCache
	History  history.Store

	db *database.DB
}

// NewLogger builds a logger from the logging configuration.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if strings.ToLower(cfg.Format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(outputFor(cfg.Output))

	return logger
}

func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

// New loads the knowledge data and opens the configured cache and history store.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}

	catalog, err := knowledge.Open(cfg.Knowledge.DataDir, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Catalog: catalog,
	}

	var opts []service.Option
	if cfg.Cache.Enabled {
		a.Cache = caching.New(cfg.Cache, logger)
		opts = append(opts, service.WithCache(a.Cache))
	}
	a.Resolver = service.NewResolver(catalog, logger, opts...)

	if err := a.openHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) openHistory(ctx context.Context) error {
	cfg := a.Config.History
	if cfg.Driver != history.DriverPostgres {
		store, err := history.Open(cfg, a.Logger)
		if err != nil {
			return fmt.Errorf("opening query history: %w", err)
		}
		a.History = store
		return nil
	}

	db, err := database.Bootstrap(ctx, cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("opening query history: %w", err)
	}
	store, err := history.NewPostgresStore(db.SQL())
	if err != nil {
		db.Close()
		return fmt.Errorf("opening query history: %w", err)
	}

	a.db = db
	a.History = store
	a.Logger.Info("Query history stored in PostgreSQL")
	return nil
}

// Close releases the history store, database pool and cache.
func (a *App) Close() {
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close query history")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close cache")
		}
	}
}
