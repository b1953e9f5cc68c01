package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unibot/backend/internal/search/web"
)

func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Run a raw web search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Search.Enabled {
				return fmt.Errorf("search: web search is disabled in config")
			}

			client := web.NewClient(web.Config{
				GoogleAPIKey: cfg.Search.GoogleAPIKey,
				GoogleCX:     cfg.Search.GoogleCX,
				SerpAPIKey:   cfg.Search.SerpAPIKey,
				MaxResults:   cfg.Search.MaxResults,
				Timeout:      time.Duration(cfg.Search.TimeoutSec) * time.Second,
				Delay:        time.Duration(cfg.Search.DelayMs) * time.Millisecond,
			})

			for _, r := range client.Search(cmd.Context(), strings.Join(args, " ")) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", r)
			}
			return nil
		},
	}
}
