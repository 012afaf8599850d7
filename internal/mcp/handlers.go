package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/service"
)

// --- Tool input/output types ---

type resolveInput struct {
	Query  string `json:"query" jsonschema:"the clinical question, e.g. Kawasaki disease treatment protocol"`
	UserID string `json:"user_id,omitempty" jsonschema:"optional identifier recorded with the query history"`
}

type resolveOutput struct {
	Subject      string            `json:"subject"`
	Stage        string            `json:"stage"`
	Category     string            `json:"category,omitempty"`
	Confidence   string            `json:"confidence"`
	Score        float64           `json:"score,omitempty"`
	Sections     []domain.Section  `json:"sections"`
	Citations    []domain.Citation `json:"citations"`
	GoogleSearch string            `json:"google_search"`
	PubMedSearch string            `json:"pubmed_search"`
	HistoryID    string            `json:"history_id,omitempty"`
}

type classifyInput struct {
	Query string `json:"query" jsonschema:"the clinical question to classify"`
}

type classifyOutput struct {
	Category  string   `json:"category"`
	Trigger   string   `json:"trigger,omitempty"`
	Acute     bool     `json:"acute"`
	Modifiers []string `json:"modifiers,omitempty"`
	Subject   string   `json:"subject"`
}

type listConditionsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list conditions in this category"`
}

type conditionSummary struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type listConditionsOutput struct {
	Conditions []conditionSummary `json:"conditions"`
	Count      int                `json:"count"`
}

type getConditionInput struct {
	Name string `json:"name" jsonschema:"canonical condition name, case-insensitive"`
}

type conditionOutput struct {
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	Keywords  []string          `json:"keywords"`
	Sections  []domain.Section  `json:"sections"`
	Citations []domain.Citation `json:"citations"`
}

type queryHistoryInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"only list queries made by this user"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of records, default 50"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of records to skip"`
}

type historyRecordOutput struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id,omitempty"`
	Query      string `json:"query"`
	Subject    string `json:"subject"`
	Stage      string `json:"stage"`
	Category   string `json:"category,omitempty"`
	Confidence string `json:"confidence"`
	Summary    string `json:"summary"`
	CreatedAt  string `json:"created_at"`
}

type queryHistoryOutput struct {
	Records []historyRecordOutput `json:"records"`
	Count   int                   `json:"count"`
}

// --- Tool handlers ---

func (s *Server) handleResolve(ctx context.Context, _ *gomcp.CallToolRequest, input resolveInput) (*gomcp.CallToolResult, resolveOutput, error) {
	result, err := s.resolver.Resolve(ctx, input.Query)
	if err != nil {
		return errorResult(err.Error()), resolveOutput{}, nil
	}

	links := service.NewSearchLinks(input.Query)
	out := resolveOutput{
		Subject:      result.Subject,
		Stage:        result.Stage.String(),
		Category:     result.Category.String(),
		Confidence:   result.Confidence.String(),
		Score:        result.Score,
		Sections:     result.Sections,
		Citations:    result.Citations,
		GoogleSearch: links.Google,
		PubMedSearch: links.PubMed,
	}

	if s.history != nil {
		record := history.NewRecord(input.UserID, input.Query, result, s.summaryLength)
		if err := s.history.Save(ctx, record); err != nil {
			s.logger.WithError(err).Warn("Failed to record query history")
		} else {
			out.HistoryID = record.ID
		}
	}

	s.logger.WithFields(logrus.Fields(result.LogFields())).Debug("Resolved query over MCP")
	return nil, out, nil
}

func (s *Server) handleClassify(_ context.Context, _ *gomcp.CallToolRequest, input classifyInput) (*gomcp.CallToolResult, classifyOutput, error) {
	classification, err := s.resolver.Classify(input.Query)
	if err != nil {
		return errorResult(err.Error()), classifyOutput{}, nil
	}

	out := classifyOutput{
		Category: classification.Category.String(),
		Trigger:  classification.Trigger,
		Acute:    classification.Acute,
		Subject:  classification.Subject,
	}
	for _, m := range classification.Modifiers {
		out.Modifiers = append(out.Modifiers, string(m))
	}
	return nil, out, nil
}

func (s *Server) handleListConditions(_ context.Context, _ *gomcp.CallToolRequest, input listConditionsInput) (*gomcp.CallToolResult, listConditionsOutput, error) {
	filter := strings.TrimSpace(input.Category)
	if filter != "" && !domain.Category(filter).IsValid() {
		return errorResult(fmt.Sprintf("unknown category %q", filter)), listConditionsOutput{}, nil
	}

	catalog := s.resolver.Catalog()
	out := listConditionsOutput{Conditions: []conditionSummary{}}
	for _, name := range catalog.Names() {
		entry, err := catalog.ByCanonical(name)
		if err != nil {
			continue
		}
		category := s.resolver.EntryCategory(entry)
		if filter != "" && category.String() != filter {
			continue
		}
		out.Conditions = append(out.Conditions, conditionSummary{Name: entry.Name, Category: category.String()})
	}
	out.Count = len(out.Conditions)
	return nil, out, nil
}

func (s *Server) handleGetCondition(_ context.Context, _ *gomcp.CallToolRequest, input getConditionInput) (*gomcp.CallToolResult, conditionOutput, error) {
	entry, err := s.resolver.Catalog().ByCanonical(input.Name)
	if err != nil {
		return errorResult(err.Error()), conditionOutput{}, nil
	}
	return nil, conditionOutput{
		Name:      entry.Name,
		Category:  s.resolver.EntryCategory(entry).String(),
		Keywords:  entry.Keywords,
		Sections:  entry.Sections,
		Citations: entry.Citations,
	}, nil
}

func (s *Server) handleQueryHistory(ctx context.Context, _ *gomcp.CallToolRequest, input queryHistoryInput) (*gomcp.CallToolResult, queryHistoryOutput, error) {
	if s.history == nil {
		return errorResult("query history is disabled"), queryHistoryOutput{}, nil
	}

	var (
		records []*history.Record
		err     error
	)
	if input.UserID != "" {
		records, err = s.history.ListByUser(ctx, input.UserID, input.Limit, input.Offset)
	} else {
		records, err = s.history.List(ctx, input.Limit, input.Offset)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("listing history: %s", err)), queryHistoryOutput{}, nil
	}

	out := queryHistoryOutput{
		Records: make([]historyRecordOutput, len(records)),
		Count:   len(records),
	}
	for i, r := range records {
		out.Records[i] = historyRecordOutput{
			ID:         r.ID,
			UserID:     r.UserID,
			Query:      r.Query,
			Subject:    r.Subject,
			Stage:      r.Stage.String(),
			Category:   r.Category.String(),
			Confidence: r.Confidence.String(),
			Summary:    r.Summary,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}
