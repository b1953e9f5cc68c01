package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/unibot/backend/internal/prompt"
	"github.com/unibot/backend/internal/storage/sqlite"
)

func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.NewClient(cfg.SQLite.Path)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer db.Close()

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("history: %w", err)
			}

			logs, err := db.RecentChatLogs(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tQUESTION\tANSWER")
			for _, l := range logs {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					l.Timestamp.Format(time.DateTime),
					oneLine(l.UserQuery, 60),
					oneLine(l.AIResponse, 80),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	return cmd
}

func oneLine(s string, n int) string {
	return prompt.Truncate(strings.Join(strings.Fields(s), " "), n)
}
