package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/newsletter-api/internal/app"
	"github.com/phrazzld/newsletter-api/internal/platform/logger"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log := logger.Init(cfg.Application)
	log.Info("configuration loaded",
		slog.String("address", cfg.Application.Address()),
		slog.String("log_level", cfg.Application.LogLevel),
		slog.String("database", cfg.Database.String()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}

	return application.RunUntilStopped(ctx)
}
