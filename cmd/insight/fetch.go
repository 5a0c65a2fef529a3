package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/ulytau-insight/internal/app"
	"github.com/JakeFAU/ulytau-insight/internal/news"
)

type fetchOutput struct {
	Count   int                 `json:"count"`
	Data    []news.Item         `json:"data"`
	Sources []news.SourceStatus `json:"sources,omitempty"`
}

func newFetchCmd() *cobra.Command {
	var (
		limit       int
		withSources bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Runs one fetch cycle and prints the ranked items as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return withApp(cmd, func(a *app.App) error {
				items, err := a.Service().Latest(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetch cycle: %w", err)
				}
				if limit > 0 && len(items) > limit {
					items = items[:limit]
				}
				out := fetchOutput{Count: len(items), Data: items}
				if withSources {
					out.Sources = a.Service().Sources()
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				if err := enc.Encode(out); err != nil {
					return fmt.Errorf("encode items: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of items to print (0 prints all)")
	cmd.Flags().BoolVar(&withSources, "sources", false, "include per-source status records")
	return cmd
}
