package mcp

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medrag-mcp-server/internal/domain"
)

const (
	conditionsURI         = "medrag://conditions"
	conditionURIPrefix    = "medrag://conditions/"
	categoriesURI         = "medrag://categories"
	jsonMIMEType          = "application/json"
	conditionsURITemplate = conditionURIPrefix + "{name}"
)

func (s *Server) registerResources() {
	s.server.AddResource(&gomcp.Resource{
		URI:         conditionsURI,
		Name:        "conditions",
		Description: "Curated conditions with their categories",
		MIMEType:    jsonMIMEType,
	}, s.readConditions)

	s.server.AddResource(&gomcp.Resource{
		URI:         categoriesURI,
		Name:        "categories",
		Description: "Category rules in evaluation order",
		MIMEType:    jsonMIMEType,
	}, s.readCategories)

	s.server.AddResourceTemplate(&gomcp.ResourceTemplate{
		URITemplate: conditionsURITemplate,
		Name:        "condition",
		Description: "The curated answer for one condition",
		MIMEType:    jsonMIMEType,
	}, s.readCondition)
}

func (s *Server) readConditions(_ context.Context, req *gomcp.ReadResourceRequest) (*gomcp.ReadResourceResult, error) {
	catalog := s.resolver.Catalog()
	list := make([]conditionSummary, 0, catalog.Base.Len())
	for _, entry := range catalog.Base.Entries() {
		list = append(list, conditionSummary{Name: entry.Name, Category: s.resolver.EntryCategory(entry).String()})
	}
	return jsonResource(req.Params.URI, list)
}

func (s *Server) readCategories(_ context.Context, req *gomcp.ReadResourceRequest) (*gomcp.ReadResourceResult, error) {
	rules := s.resolver.Catalog().Rules
	if rules == nil {
		rules = []domain.CategoryRule{}
	}
	return jsonResource(req.Params.URI, rules)
}

func (s *Server) readCondition(_ context.Context, req *gomcp.ReadResourceRequest) (*gomcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name, err := url.PathUnescape(strings.TrimPrefix(uri, conditionURIPrefix))
	if err != nil || !strings.HasPrefix(uri, conditionURIPrefix) {
		return nil, gomcp.ResourceNotFoundError(uri)
	}

	entry, err := s.resolver.Catalog().ByCanonical(name)
	if err != nil {
		return nil, gomcp.ResourceNotFoundError(uri)
	}
	return jsonResource(uri, conditionOutput{
		Name:      entry.Name,
		Category:  s.resolver.EntryCategory(entry).String(),
		Keywords:  entry.Keywords,
		Sections:  entry.Sections,
		Citations: entry.Citations,
	})
}

func jsonResource(uri string, v any) (*gomcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &gomcp.ReadResourceResult{
		Contents: []*gomcp.ResourceContents{
			{URI: uri, MIMEType: jsonMIMEType, Text: string(data)},
		},
	}, nil
}
