// Package cli implements the medrag command line.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/medrag-mcp-server/internal/app"
	"github.com/medrag-mcp-server/internal/config"
	"github.com/medrag-mcp-server/internal/domain"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// options holds the persistent flags shared by every command.
type options struct {
	configFile   string
	knowledgeDir string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "medrag",
		Short: "Clinical query resolver",
		Long: `medrag answers clinical questions from a curated knowledge base.

A query is matched directly against condition names, then against known
abbreviations, then by keyword overlap. Anything left unmatched receives a
structured answer synthesised from its clinical category, with search links.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "configuration file (default: environment and built-in defaults)")
	root.PersistentFlags().StringVar(&opts.knowledgeDir, "knowledge-dir", "", "directory of knowledge data overriding the embedded set")

	root.AddCommand(
		newVersionCommand(),
		newResolveCommand(opts),
		newClassifyCommand(opts),
		newConditionsCommand(opts),
		newValidateCommand(opts),
		newServeCommand(opts),
		newMCPCommand(opts),
		newHistoryCommand(opts),
		newSetupCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "medrag %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// loadConfig returns the configuration selected by the flags: a viper-managed
// file when --config is given, otherwise the environment-driven lite settings.
func (o *options) loadConfig() (domain.ConfigManager, error) {
	var manager domain.ConfigManager
	if o.configFile != "" {
		m, err := config.NewManager(o.configFile)
		if err != nil {
			return nil, err
		}
		manager = m
	} else {
		lite := config.LoadLiteConfig()
		if lite.HistoryEnabled {
			if err := lite.EnsureDataDir(); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		manager = config.NewStatic(lite.ToConfig())
	}

	cfg := manager.GetConfig()
	if o.knowledgeDir != "" {
		cfg.Knowledge.DataDir = o.knowledgeDir
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return manager, nil
}

// offlineApp assembles a resolver for one-shot commands: no history and
// logs below warning discarded.
func (o *options) offlineApp(cmd *cobra.Command) (*app.App, error) {
	manager, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := *manager.GetConfig()
	cfg.History.Driver = "none"

	logger := app.NewLogger(cfg.Logging)
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(logrus.WarnLevel)

	return app.New(cmd.Context(), &cfg, logger)
}
