package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/newsletter-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// MigrationsTable records which migrations have been applied.
const MigrationsTable = "schema_migrations"

// NewMigrationProvider returns a goose provider over the embedded migrations.
func NewMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	gooseStore, err := database.NewStore(database.DialectPostgres, MigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration store: %w", err)
	}

	// The dialect must be empty when a custom store is supplied.
	provider, err := goose.NewProvider("", db, migrations.FS, goose.WithStore(gooseStore))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration in version order.
// It stops at the first failing migration and returns its error.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "migrations"))

	provider, err := NewMigrationProvider(db)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		logger.DebugContext(ctx, "migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("path", r.Source.Path),
			slog.Duration("duration", r.Duration))
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.DebugContext(ctx, "migrations complete", slog.Int("applied", len(results)))
	return nil
}

// MigrationStatus describes one embedded migration and whether it has been applied.
type MigrationStatus struct {
	Version int64
	Path    string
	Applied bool
}

// Status reports the state of every embedded migration, oldest first.
func Status(ctx context.Context, db *sql.DB) ([]MigrationStatus, error) {
	provider, err := NewMigrationProvider(db)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
