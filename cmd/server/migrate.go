package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/phrazzld/newsletter-api/internal/platform/logger"
	"github.com/phrazzld/newsletter-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command and its subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd, rootOpts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd, rootOpts)
		},
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Application)

	db, err := postgres.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := postgres.Migrate(cmd.Context(), db, log); err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return err
}

func runMigrateStatus(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger.Init(cfg.Application)

	db, err := postgres.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	statuses, err := postgres.Status(cmd.Context(), db)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, state, s.Path)
	}
	return w.Flush()
}
