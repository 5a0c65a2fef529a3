package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ulytau-insight/internal/app"
	"github.com/JakeFAU/ulytau-insight/internal/config"
	"github.com/JakeFAU/ulytau-insight/internal/logging"
)

type envKeyType string

const envKey envKeyType = "env"

// env is what every subcommand receives from the root pre-run hook.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp is the application factory. Tests replace it to inject fakes.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app.App, error) {
	return app.New(ctx, cfg, app.WithLogger(logger))
}

// newLogger builds the process logger. Tests replace it to silence output.
var newLogger = logging.Build

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Regional news aggregator for the Ulytau region.",
		Long: `insight polls feeds, HTML listing pages and public channel views, keeps
what concerns the Ulytau region, scores it and serves the result over HTTP
and Telegram.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
				Service:     config.ServiceName,
				Version:     config.ServiceVersion,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, &env{cfg: cfg, logger: logger}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and ULYTAU_* env vars apply without one)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newSourcesCmd())

	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not initialized")
	}
	return e, nil
}

// withApp builds the App, runs fn and closes the App.
func withApp(cmd *cobra.Command, fn func(*app.App) error) (err error) {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			e.logger.Warn("close application", zap.Error(cerr))
		}
	}()
	return fn(a)
}
