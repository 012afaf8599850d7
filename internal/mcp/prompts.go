package mcp

import (
	"context"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/service"
)

const clinicalAnswerPrompt = "clinical_answer"

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&gomcp.Prompt{
		Name:        clinicalAnswerPrompt,
		Description: "Ground an answer to a clinical question in the resolver's structured result and citations.",
		Arguments: []*gomcp.PromptArgument{
			{Name: "query", Description: "the clinical question", Required: true},
			{Name: "audience", Description: "clinician (default) or patient"},
		},
	}, s.handleClinicalAnswerPrompt)
}

func (s *Server) handleClinicalAnswerPrompt(ctx context.Context, req *gomcp.GetPromptRequest) (*gomcp.GetPromptResult, error) {
	query := strings.TrimSpace(req.Params.Arguments["query"])
	if query == "" {
		return nil, fmt.Errorf("argument query is required")
	}
	audience := req.Params.Arguments["audience"]
	if audience == "" {
		audience = "clinician"
	}

	result, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	return &gomcp.GetPromptResult{
		Description: fmt.Sprintf("Answer for %s (%s match)", result.Subject, result.Stage),
		Messages: []*gomcp.PromptMessage{
			{
				Role:    "user",
				Content: &gomcp.TextContent{Text: renderPrompt(query, audience, result)},
			},
		},
	}, nil
}

// renderPrompt writes the resolution as context for the model, with
// instructions matching the confidence of the match.
func renderPrompt(query, audience string, result *domain.ResolutionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n", query)
	fmt.Fprintf(&b, "Audience: %s\n\n", audience)
	fmt.Fprintf(&b, "Reference material for %s (match: %s, confidence: %s", result.Subject, result.Stage, result.Confidence)
	if result.Category != "" {
		fmt.Fprintf(&b, ", category: %s", result.Category)
	}
	b.WriteString(")\n")

	for _, section := range result.Sections {
		fmt.Fprintf(&b, "\n### %s\n%s\n", section.Heading, section.Body)
	}

	if len(result.Citations) > 0 {
		b.WriteString("\nSources:\n")
		for _, c := range result.Citations {
			fmt.Fprintf(&b, "- %s: %s\n", c.Label, c.URL)
		}
	}

	links := service.NewSearchLinks(query)
	fmt.Fprintf(&b, "\nFurther reading: %s\n", links.PubMed)

	b.WriteString("\nAnswer the question using the reference material and cite the sources you rely on.")
	if !result.Stage.IsCurated() {
		b.WriteString(" The material is a general framework for the condition's category rather than curated guidance; say so, and recommend checking current guidelines.")
	}
	if audience == "patient" {
		b.WriteString(" Use plain language and advise discussing treatment decisions with a clinician.")
	}
	b.WriteString("\n")

	return b.String()
}
