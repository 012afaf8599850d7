package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/knowledge"
	"github.com/medrag-mcp-server/internal/service"
)

func newResolveCommand(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <query...>",
		Short: "Answer a clinical question",
		Example: `  medrag resolve "HTN management in pregnancy"
  medrag resolve --json Kawasaki disease treatment protocol`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.offlineApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			result, err := a.Resolver.Resolve(cmd.Context(), query)
			if err != nil {
				return err
			}
			links := service.NewSearchLinks(query)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					*domain.ResolutionResult
					service.SearchLinks
					Query string `json:"query"`
				}{result, links, query})
			}
			renderResult(cmd.OutOrStdout(), result, links)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newClassifyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <query...>",
		Short: "Show the clinical category a query falls into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.offlineApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.Resolver.Classify(strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subject:  %s\n", c.Subject)
			fmt.Fprintf(out, "Category: %s\n", c.Category)
			if c.Trigger != "" {
				fmt.Fprintf(out, "Trigger:  %s\n", c.Trigger)
			}
			fmt.Fprintf(out, "Acute:    %t\n", c.Acute)
			if len(c.Modifiers) > 0 {
				mods := make([]string, len(c.Modifiers))
				for i, m := range c.Modifiers {
					mods[i] = string(m)
				}
				fmt.Fprintf(out, "Modifiers: %s\n", strings.Join(mods, ", "))
			}
			return nil
		},
	}
}

func newConditionsCommand(opts *options) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "conditions",
		Short: "List the curated conditions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter domain.Category
			if category != "" {
				filter = domain.Category(category)
				if !filter.IsValid() {
					return fmt.Errorf("unknown category %q", category)
				}
			}

			a, err := opts.offlineApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, entry := range a.Catalog.Base.Entries() {
				entryCategory := a.Resolver.EntryCategory(entry)
				if filter != "" && entryCategory != filter {
					continue
				}
				fmt.Fprintf(out, "%-40s %s\n", entry.Name, entryCategory)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list conditions in this category")
	return cmd
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check a knowledge data directory",
		Long: `Load and validate knowledge data. With no directory the --knowledge-dir
flag is used, and without that the embedded data is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.knowledgeDir
			if len(args) == 1 {
				dir = args[0]
			}

			catalog, err := knowledge.Open(dir, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d conditions, %d aliases, %d category rules\n",
				catalog.Source, catalog.Base.Len(), catalog.Aliases.Len(), len(catalog.Rules))
			return nil
		},
	}
}

// renderResult prints a result as plain text.
func renderResult(w io.Writer, result *domain.ResolutionResult, links service.SearchLinks) {
	fmt.Fprintf(w, "%s\n", result.Subject)
	fmt.Fprintf(w, "Match: %s (confidence %s)", result.Stage, result.Confidence)
	if result.Category != "" {
		fmt.Fprintf(w, ", category %s", result.Category)
	}
	fmt.Fprintln(w)

	for _, s := range result.Sections {
		fmt.Fprintf(w, "\n## %s\n%s\n", s.Heading, s.Body)
	}

	if len(result.Citations) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, c := range result.Citations {
			fmt.Fprintf(w, "  - %s: %s\n", c.Label, c.URL)
		}
	}

	fmt.Fprintf(w, "\nSearch: %s\n        %s\n", links.Google, links.PubMed)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
