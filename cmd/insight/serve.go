package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/ulytau-insight/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API, the Telegram bot and the notification monitor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				if err := a.Serve(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				a.Logger().Info("serve command finished")
				return nil
			})
		},
	}
}
