package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/medrag-mcp-server/internal/api"
	"github.com/medrag-mcp-server/internal/app"
	"github.com/medrag-mcp-server/internal/mcp"
)

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg := manager.GetConfig()
			logger := app.NewLogger(cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(manager, api.Dependencies{
				Resolver: a.Resolver,
				Cache:    a.Cache,
				History:  a.History,
				Logger:   logger,
			})
			return server.Start(ctx)
		},
	}
}

func newMCPCommand(opts *options) *cobra.Command {
	var transport string
	var port int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server",
		Long: `Run the Model Context Protocol server. The stdio transport is what desktop
clients launch; the http transport serves the streamable HTTP endpoint at /mcp.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg := manager.GetConfig()

			// stdout carries the protocol on stdio
			if cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" {
				cfg.Logging.Output = "stderr"
			}
			logger := app.NewLogger(cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcp.NewServer(a.Resolver, cfg.MCP,
				mcp.WithLogger(logger),
				mcp.WithHistory(a.History, cfg.History.SummaryLength),
			)

			if transport == "" {
				transport = os.Getenv("MEDRAG_TRANSPORT")
			}
			switch transport {
			case "", "stdio":
				return srv.Run(ctx)
			case "http":
				if port == 0 {
					port = cfg.Server.Port
				}
				addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
				logger.WithField("addr", addr).Info("MCP server listening on streamable HTTP")
				return serveMCPHTTP(ctx, srv, addr)
			default:
				return fmt.Errorf("unknown transport %q", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http (default: MEDRAG_TRANSPORT, then stdio)")
	cmd.Flags().IntVar(&port, "port", 0, "port for the http transport")
	return cmd
}

func serveMCPHTTP(ctx context.Context, srv *mcp.Server, addr string) error {
	handler := gomcp.NewStreamableHTTPHandler(func(*http.Request) *gomcp.Server {
		return srv.MCPServer()
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
