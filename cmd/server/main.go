package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medrag-mcp-server/internal/api"
	"github.com/medrag-mcp-server/internal/app"
	"github.com/medrag-mcp-server/internal/config"
)

func main() {
	configFile := flag.String("config", "", "configuration file")
	flag.Parse()

	// Load configuration
	configManager, err := config.NewManager(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := app.NewLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialise resolver: %v", err)
	}
	defer a.Close()

	server := api.NewServer(configManager, api.Dependencies{
		Resolver: a.Resolver,
		Cache:    a.Cache,
		History:  a.History,
		Logger:   logger,
	})

	if err := server.Start(ctx); err != nil {
		log.Printf("Server failed: %v", err)
		return
	}

	log.Println("Server stopped")
}
