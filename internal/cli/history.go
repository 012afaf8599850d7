package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/medrag-mcp-server/internal/config"
	"github.com/medrag-mcp-server/internal/history"
)

func newHistoryCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded queries",
	}

	var user string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show recent queries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			var records []*history.Record
			if user != "" {
				records, err = store.ListByUser(cmd.Context(), user, limit, 0)
			} else {
				records, err = store.List(cmd.Context(), limit, 0)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%s  %-8s %-30s %s\n",
					r.CreatedAt.Local().Format(time.DateTime), r.Stage, r.Subject, r.Query)
			}
			return nil
		},
	}
	list.Flags().StringVar(&user, "user", "", "only show queries from this user")
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of records")

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the query history as JSON",
		Long: `Export every recorded query as JSON. Without --output the file is written
to the exports directory under the data directory; use "-" for stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			if output == "-" {
				return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}

			path := output
			if path == "" {
				lite := config.LoadLiteConfig()
				if err := lite.EnsureDataDir(); err != nil {
					return err
				}
				path = filepath.Join(lite.ExportDir(), fmt.Sprintf("history-%s.json", time.Now().UTC().Format("20060102-150405")))
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			if err := store.ExportJSON(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History exported to %s\n", path)
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "destination file, or - for stdout")

	cmd.AddCommand(list, export)
	return cmd
}

// openHistory opens the configured history store directly.
func (o *options) openHistory() (history.Store, error) {
	manager, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := history.Open(cfg.History, logger)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("query history is disabled")
	}
	return store, nil
}
