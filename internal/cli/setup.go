package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medrag-mcp-server/internal/setup"
)

func newSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with desktop clients",
	}

	var opts setup.Options
	desktop := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add medrag to the Claude Desktop configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.ConfigureClaudeDesktop(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %q in %s\n", setup.ServerName, path)
			fmt.Fprintln(out, "Restart Claude Desktop to load the server.")
			return nil
		},
	}
	desktop.Flags().StringVar(&opts.ConfigPath, "config-path", "", "Claude Desktop config file (default: platform location)")
	desktop.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the medrag binary (default: this executable)")
	desktop.Flags().StringVar(&opts.DataDir, "data-dir", "", "MEDRAG_DATA_DIR passed to the server")
	desktop.Flags().StringVar(&opts.KnowledgeDir, "knowledge", "", "MEDRAG_KNOWLEDGE_DIR passed to the server")

	var statusPath string
	status := &cobra.Command{
		Use:   "status",
		Short: "Check the Claude Desktop registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := setup.GetStatus(statusPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config:     %s\n", st.ConfigPath)
			fmt.Fprintf(out, "Registered: %t\n", st.Registered)
			if st.Command != "" {
				fmt.Fprintf(out, "Command:    %s\n", st.Command)
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "  ! %s\n", issue)
			}
			return nil
		},
	}
	status.Flags().StringVar(&statusPath, "config-path", "", "Claude Desktop config file (default: platform location)")

	cmd.AddCommand(desktop, status)
	return cmd
}
