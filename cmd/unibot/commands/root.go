// Package commands defines the Cobra commands of the unibot binary.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unibot/backend/pkg/config"
	"github.com/unibot/backend/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "unibot",
		Short: "UniBot, a question-answering assistant for your institution",
		Long: `UniBot answers questions about an institution from a local knowledge base,
a static FAQ list and optional web search.

Configuration is read from config.yaml, .env and UNIBOT_* environment variables.
Use cmd/api to run the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded

			// Logs go to stderr so answers on stdout stay clean.
			if err := logger.Init(cfg.Logging.Level, "console", "stderr"); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ./config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewSearchCmd(),
		NewHistoryCmd(),
	)

	return root
}
