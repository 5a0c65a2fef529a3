package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/ulytau-insight/internal/config"
)

func newSourcesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Prints the source catalog and exits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := config.LoadCatalog(e.cfg.Sources.Path)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			w := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(map[string]any{"sources": catalog.Sources}); err != nil {
					return fmt.Errorf("encode catalog: %w", err)
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				if err := enc.Encode(map[string]any{"count": len(catalog.Sources), "sources": catalog.Sources}); err != nil {
					return fmt.Errorf("encode catalog: %w", err)
				}
				return nil
			default:
				return fmt.Errorf("unknown --format %q (want yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}
