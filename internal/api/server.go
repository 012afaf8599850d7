package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/caching"
	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/middleware"
	"github.com/medrag-mcp-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Dependencies are the components the HTTP server serves. Cache and
// History may be nil.
type Dependencies struct {
	Resolver *service.Resolver
	Cache    *caching.ResolutionCache
	History  history.Store
	Logger   *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	resolver      *service.Resolver
	cache         *caching.ResolutionCache
	history       history.Store
	limiter       *middleware.RateLimiter
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		resolver:      deps.Resolver,
		cache:         deps.Cache,
		history:       deps.History,
		logger:        logger,
		router:        router,
		startedAt:     time.Now(),
	}

	if cfg.RateLimit.Enabled {
		server.limiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	server.setupRoutes()
	return server
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.limiter != nil {
		go s.sweepLimiter(ctx)
	}

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.limiter.Cleanup(now); n > 0 {
				s.logger.WithField("clients", n).Debug("Dropped idle rate limit buckets")
			}
		}
	}
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	if s.limiter != nil {
		v1.Use(s.limiter.Middleware())
	}
	{
		v1.POST("/resolve", s.handleResolve)
		v1.GET("/classify", s.handleClassify)
		v1.GET("/conditions", s.handleListConditions)
		v1.GET("/conditions/:name", s.handleGetCondition)
		v1.GET("/history", s.handleListHistory)
		v1.GET("/history/export", s.handleExportHistory)
		v1.GET("/history/:id", s.handleGetHistory)
		v1.GET("/stats", s.handleStats)
	}
}
