package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unibot/backend/internal/app"
)

func NewAskCmd() *cobra.Command {
	var includeSearch bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask UniBot a question",
		Long: `Ask a single question. The knowledge base is loaded and indexed first, so
the first answer takes as long as a server start.

Examples:
  unibot ask "what is the full form of kmit"
  unibot ask --search "when is the next placement drive?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer services.Close()

			reply := services.Engine.Chat(cmd.Context(), strings.Join(args, " "), includeSearch)
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&includeSearch, "search", "s", false, "Add web search results to the context")

	return cmd
}
