package testdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/newsletter-api/internal/config"
	"github.com/phrazzld/newsletter-api/internal/redact"
)

// DefaultTeardownTimeout bounds a single teardown, connect to drop.
const DefaultTeardownTimeout = 30 * time.Second

// waitGrace gives the teardown goroutine time to report its own deadline
// error before Release gives up on it.
const waitGrace = time.Second

// AdminConn is an administrative session that can run statements and be closed.
type AdminConn interface {
	Executor
	Close(ctx context.Context) error
}

// Connector opens an administrative session without selecting a database.
type Connector func(ctx context.Context, admin config.DatabaseSettings) (AdminConn, error)

// ConnectAdmin opens a pgx connection using admin.WithoutDB.
func ConnectAdmin(ctx context.Context, admin config.DatabaseSettings) (AdminConn, error) {
	conn, err := pgx.Connect(ctx, admin.WithoutDB())
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Teardown connects as admin and removes the named database with strategy.
// It holds no state: running it against a database that is already gone
// fails fast with ErrDatabaseMissing.
func Teardown(ctx context.Context, admin config.DatabaseSettings, name string, strategy TerminationStrategy) error {
	return teardown(ctx, ConnectAdmin, admin, name, strategy)
}

func teardown(
	ctx context.Context,
	connect Connector,
	admin config.DatabaseSettings,
	name string,
	strategy TerminationStrategy,
) error {
	if strategy == nil {
		strategy = DefaultStrategy
	}

	conn, err := connect(ctx, admin)
	if err != nil {
		return &TeardownError{Database: name, Step: StepAdminConnect, Err: err}
	}
	defer func() {
		// The session's own context may be spent; closing must still happen.
		closeCtx, cancel := context.WithTimeout(context.Background(), waitGrace)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if err := strategy.Drop(ctx, conn, name); err != nil {
		var tdErr *TeardownError
		if errors.As(err, &tdErr) {
			return err
		}
		return &TeardownError{Database: name, Step: StepDrop, Err: err}
	}
	return nil
}

// Coordinator runs teardown on an independent goroutine and makes the caller
// wait for it. The zero value is ready to use.
type Coordinator struct {
	// Strategy removes the database. Defaults to DefaultStrategy.
	Strategy TerminationStrategy
	// Timeout bounds the whole teardown. Defaults to DefaultTeardownTimeout.
	Timeout time.Duration
	// Connect opens the admin session. Defaults to ConnectAdmin.
	Connect Connector
	// Logger receives the outcome. Defaults to slog.Default().
	Logger *slog.Logger
}

// Release closes pool, then removes the named database, and returns once that
// work has finished or Timeout has passed. It never panics; failures come back
// as *TeardownError.
func (c *Coordinator) Release(name string, admin config.DatabaseSettings, pool io.Closer) error {
	timeout := c.timeout()
	log := c.logger().With(slog.String("database", name))

	done := make(chan error, 1)
	start := time.Now()

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &TeardownError{Database: name, Step: StepRecover, Err: fmt.Errorf("teardown panicked: %v", r)}
			}
			done <- err
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err = c.run(ctx, name, admin, pool, log)
	}()

	timer := time.NewTimer(timeout + waitGrace)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = &TeardownError{Database: name, Step: StepWait, Err: ErrTeardownTimeout}
	}

	if err != nil {
		log.Error("ephemeral database teardown failed",
			slog.String("error", redact.Error(err)),
			slog.Duration("elapsed", time.Since(start)))
		return err
	}

	log.Debug("ephemeral database dropped", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (c *Coordinator) run(
	ctx context.Context,
	name string,
	admin config.DatabaseSettings,
	pool io.Closer,
	log *slog.Logger,
) error {
	if err := closePool(pool); err != nil {
		// Sessions left behind are handled by the strategy.
		log.Warn("failed to close database pool before teardown",
			slog.String("step", string(StepClosePool)),
			slog.String("error", redact.Error(err)))
	}

	connect := c.Connect
	if connect == nil {
		connect = ConnectAdmin
	}
	return teardown(ctx, connect, admin, name, c.Strategy)
}

// closePool closes pool, turning a panic into an error so the drop still runs.
func closePool(pool io.Closer) (err error) {
	if pool == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool close panicked: %v", r)
		}
	}()
	return pool.Close()
}

func (c *Coordinator) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTeardownTimeout
	}
	return c.Timeout
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default().With(slog.String("component", "testdb"))
	}
	return c.Logger
}
