package testdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/newsletter-api/internal/platform/postgres"
)

// Executor runs a single administrative statement. *pgx.Conn satisfies it.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// TerminationStrategy removes a database that may still have sessions
// attached. Implementations must not return until the database is gone or
// the failure is known, and must report failures as *TeardownError.
type TerminationStrategy interface {
	Drop(ctx context.Context, exec Executor, name string) error
}

// TerminationStrategyFunc adapts a function to TerminationStrategy.
type TerminationStrategyFunc func(ctx context.Context, exec Executor, name string) error

// Drop calls f(ctx, exec, name).
func (f TerminationStrategyFunc) Drop(ctx context.Context, exec Executor, name string) error {
	return f(ctx, exec, name)
}

const terminateBackendsQuery = `
	SELECT pg_terminate_backend(pid)
	FROM pg_stat_activity
	WHERE datname = $1 AND pid <> pg_backend_pid()`

// dropRetryInterval is how long TerminateBackends waits before retrying a
// DROP that raced with a backend that had not finished exiting.
const dropRetryInterval = 50 * time.Millisecond

// TerminateBackends terminates every other session connected to the database,
// then drops it. It works on every supported PostgreSQL version.
type TerminateBackends struct{}

// Drop implements TerminationStrategy.
func (TerminateBackends) Drop(ctx context.Context, exec Executor, name string) error {
	if _, err := exec.Exec(ctx, terminateBackendsQuery, name); err != nil {
		return &TeardownError{Database: name, Step: StepTerminate, Err: err}
	}

	stmt := "DROP DATABASE " + quoteIdent(name)
	for {
		_, err := exec.Exec(ctx, stmt)
		if err == nil {
			return nil
		}
		// pg_terminate_backend only signals; a backend may still be exiting.
		if !postgres.IsObjectInUse(err) {
			return dropError(name, err)
		}

		select {
		case <-ctx.Done():
			return &TeardownError{Database: name, Step: StepDrop, Err: fmt.Errorf("%w: %w", err, ctx.Err())}
		case <-time.After(dropRetryInterval):
		}
	}
}

// ForceDrop drops the database with the FORCE option, which terminates
// sessions server-side. It requires PostgreSQL 13 or later.
type ForceDrop struct{}

// Drop implements TerminationStrategy.
func (ForceDrop) Drop(ctx context.Context, exec Executor, name string) error {
	if _, err := exec.Exec(ctx, "DROP DATABASE "+quoteIdent(name)+" WITH (FORCE)"); err != nil {
		return dropError(name, err)
	}
	return nil
}

// DefaultStrategy is used when no strategy is configured.
var DefaultStrategy TerminationStrategy = TerminateBackends{}

func dropError(name string, err error) error {
	if postgres.IsDatabaseMissing(err) {
		err = fmt.Errorf("%w: %w", ErrDatabaseMissing, err)
	}
	return &TeardownError{Database: name, Step: StepDrop, Err: err}
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
