package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/phrazzld/newsletter-api/internal/config"
)

// DriverName is the database/sql driver every pool in this service uses.
const DriverName = "pgx"

const (
	defaultMaxOpenConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = time.Minute
	pingTimeout            = 5 * time.Second
)

// Open creates a connection pool for the database named in settings and
// verifies it with a ping. The caller owns the returned pool.
func Open(ctx context.Context, settings config.DatabaseSettings) (*sql.DB, error) {
	db, err := sql.Open(DriverName, settings.WithDB())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ConfigurePool(db, settings.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %q: %w", settings.DatabaseName, MapError(err))
	}

	return db, nil
}

// ConfigurePool applies the service's pool limits. maxOpen <= 0 selects the default.
func ConfigurePool(db *sql.DB, maxOpen int) {
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
}
