// Package mcp exposes the resolution cascade as MCP tools.
package mcp

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/service"
)

// Server wraps the resolver and exposes it as MCP tools.
type Server struct {
	server        *gomcp.Server
	resolver      *service.Resolver
	history       history.Store
	summaryLength int
	logger        *logrus.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistory records every successful resolution in store.
func WithHistory(store history.Store, summaryLength int) Option {
	return func(s *Server) {
		s.history = store
		s.summaryLength = summaryLength
	}
}

// WithLogger sets the logger. MCP over stdio needs the logger on stderr.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server over resolver.
func NewServer(resolver *service.Resolver, cfg domain.MCPConfig, opts ...Option) *Server {
	name := cfg.ServerName
	if name == "" {
		name = "medrag-query-resolver"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	s := &Server{
		resolver: resolver,
		logger:   logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: name, Version: version},
		nil,
	)
	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s
}

// Run serves MCP over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("history", s.history != nil).Info("MCP server running on stdio")
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name: "resolve_clinical_query",
		Description: "Answer a free-text clinical query with a structured, cited response. " +
			"Known conditions return curated guidance; anything else returns a category-specific synthesized answer. " +
			"The stage field reports how the answer was found (direct, alias, fuzzy, fallback).",
	}, s.handleResolve)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "classify_category",
		Description: "Classify a clinical query into a category (Oncology, Infectious-Severe, Cardiovascular-Acute, ... General) and report modifiers such as paediatric.",
	}, s.handleClassify)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_conditions",
		Description: "List the conditions with curated answers, optionally filtered by category.",
	}, s.handleListConditions)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_condition",
		Description: "Get the curated answer for a condition by canonical name.",
	}, s.handleGetCondition)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "query_history",
		Description: "List previously resolved queries, newest first, optionally for one user.",
	}, s.handleQueryHistory)
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
