package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newsletter-api/internal/config"
	"github.com/phrazzld/newsletter-api/internal/platform/postgres"
	"github.com/phrazzld/newsletter-api/internal/redact"
)

// MigrateFunc brings a freshly created database up to the current schema.
type MigrateFunc func(ctx context.Context, db *sql.DB, logger *slog.Logger) error

// Handle is one ephemeral database. The server under test and the test's
// assertions share DB; Release drops the database exactly once.
type Handle struct {
	// Name is the database name, a random UUID.
	Name string
	// DB is a pool connected to the database.
	DB *sql.DB
	// Admin connects to the server without selecting a database.
	Admin config.DatabaseSettings

	coordinator *Coordinator
	released    atomic.Bool
}

// Settings returns connection settings for this handle's database.
func (h *Handle) Settings() config.DatabaseSettings {
	return h.Admin.ForDatabase(h.Name)
}

// Release closes the pool and drops the database, blocking until both are
// done or the teardown deadline passes. Only the first call does any work;
// later calls return ErrAlreadyReleased immediately.
func (h *Handle) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return ErrAlreadyReleased
	}
	// A nil *sql.DB inside an io.Closer is not a nil interface.
	var pool io.Closer
	if h.DB != nil {
		pool = h.DB
	}
	return h.coordinator.Release(h.Name, h.Admin, pool)
}

// Option configures Provision.
type Option func(*provisioner)

// WithStrategy selects how Release removes the database.
func WithStrategy(s TerminationStrategy) Option {
	return func(p *provisioner) { p.coordinator.Strategy = s }
}

// WithTeardownTimeout bounds Release.
func WithTeardownTimeout(d time.Duration) Option {
	return func(p *provisioner) { p.coordinator.Timeout = d }
}

// WithLogger sets the logger for provisioning and teardown.
func WithLogger(l *slog.Logger) Option {
	return func(p *provisioner) { p.logger = l }
}

// WithMigrate replaces the schema step, e.g. to provision an empty database.
func WithMigrate(fn MigrateFunc) Option {
	return func(p *provisioner) { p.migrate = fn }
}

// WithConnector replaces how admin sessions are opened.
func WithConnector(c Connector) Option {
	return func(p *provisioner) {
		p.connect = c
		p.coordinator.Connect = c
	}
}

type provisioner struct {
	logger      *slog.Logger
	connect     Connector
	migrate     MigrateFunc
	coordinator *Coordinator
}

// Provision creates a uniquely named database, connects a pool to it and
// applies every migration. A database that fails to migrate is dropped
// before the error is returned, so a caller never sees a half-built schema.
// Failures are *ProvisionError.
func Provision(ctx context.Context, admin config.DatabaseSettings, opts ...Option) (*Handle, error) {
	p := &provisioner{
		connect:     ConnectAdmin,
		migrate:     postgres.Migrate,
		coordinator: &Coordinator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slog.String("component", "testdb"))
	p.coordinator.Logger = p.logger

	name := uuid.NewString()
	log := p.logger.With(slog.String("database", name))

	if err := p.create(ctx, admin, name); err != nil {
		return nil, &ProvisionError{Step: StepCreate, Database: name, Err: err}
	}

	db, err := postgres.Open(ctx, admin.ForDatabase(name))
	if err != nil {
		connErr := fmt.Errorf("%w: %w", ErrConnectFailed, err)
		if tdErr := p.coordinator.Release(name, admin, nil); tdErr != nil {
			connErr = errors.Join(connErr, tdErr)
		}
		return nil, &ProvisionError{Step: StepConnect, Database: name, Err: connErr}
	}

	if err := p.migrate(ctx, db, log); err != nil {
		migErr := fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		if tdErr := p.coordinator.Release(name, admin, db); tdErr != nil {
			migErr = errors.Join(migErr, tdErr)
		}
		return nil, &ProvisionError{Step: StepMigrate, Database: name, Err: migErr}
	}

	log.Debug("ephemeral database provisioned")

	return &Handle{
		Name:        name,
		DB:          db,
		Admin:       admin,
		coordinator: p.coordinator,
	}, nil
}

func (p *provisioner) create(ctx context.Context, admin config.DatabaseSettings, name string) error {
	conn, err := p.connect(ctx, admin)
	if err != nil {
		return fmt.Errorf("%w: admin connection: %w", ErrCreateFailed, err)
	}
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			p.logger.Warn("failed to close admin connection", slog.String("error", redact.Error(err)))
		}
	}()

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+quoteIdent(name)); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	return nil
}
