package testdb_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/newsletter-api/internal/config"
	"github.com/phrazzld/newsletter-api/internal/platform/logger"
	"github.com/phrazzld/newsletter-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer stands in for the PostgreSQL admin endpoint. It records every
// statement and event across the sessions it hands out.
type fakeServer struct {
	mu         sync.Mutex
	events     []string
	connectErr error
	exec       func(ctx context.Context, sql string, args ...any) error
}

func (s *fakeServer) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeServer) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *fakeServer) Connect(ctx context.Context, _ config.DatabaseSettings) (testdb.AdminConn, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	s.record("connect")
	return &fakeConn{server: s}, nil
}

type fakeConn struct {
	server *fakeServer
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.server.record(normalize(sql))
	if c.server.exec != nil {
		if err := c.server.exec(ctx, sql, args...); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (c *fakeConn) Close(context.Context) error {
	c.server.record("close")
	return nil
}

type fakePool struct {
	server *fakeServer
	closed atomic.Int32
}

func (p *fakePool) Close() error {
	p.closed.Add(1)
	p.server.record("pool_close")
	return nil
}

func normalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, Message: "error message", Severity: "ERROR"}
}

var admin = config.DatabaseSettings{
	Host:         "127.0.0.1",
	Port:         5432,
	Username:     "postgres",
	Password:     "password",
	DatabaseName: "postgres",
}

const dbName = "0b6c0e52-3f0f-4d8e-9a53-5d8b8e3c9f11"

func TestTerminateBackends_TerminatesBeforeDrop(t *testing.T) {
	t.Parallel()

	server := &fakeServer{}
	var terminateArg any
	server.exec = func(_ context.Context, sql string, args ...any) error {
		if strings.Contains(sql, "pg_terminate_backend") {
			terminateArg = args[0]
		}
		return nil
	}

	c := &testdb.Coordinator{Connect: server.Connect, Strategy: testdb.TerminateBackends{}}
	require.NoError(t, c.Release(dbName, admin, nil))

	events := server.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "connect", events[0])
	assert.Contains(t, events[1], "pg_terminate_backend(pid)")
	assert.Contains(t, events[1], "pid <> pg_backend_pid()")
	assert.Equal(t, `DROP DATABASE "`+dbName+`"`, events[2])
	assert.Equal(t, "close", events[3])
	assert.Equal(t, dbName, terminateArg)
}

func TestForceDrop_SingleStatement(t *testing.T) {
	t.Parallel()

	server := &fakeServer{}
	c := &testdb.Coordinator{Connect: server.Connect, Strategy: testdb.ForceDrop{}}
	require.NoError(t, c.Release(dbName, admin, nil))

	assert.Equal(t, []string{
		"connect",
		`DROP DATABASE "` + dbName + `" WITH (FORCE)`,
		"close",
	}, server.Events())
}

func TestTerminateBackends_RetriesDropWhileBackendsExit(t *testing.T) {
	t.Parallel()

	server := &fakeServer{}
	var drops int
	server.exec = func(_ context.Context, sql string, _ ...any) error {
		if strings.HasPrefix(sql, "DROP DATABASE") {
			drops++
			if drops < 3 {
				return newPgError("55006")
			}
		}
		return nil
	}

	err := testdb.TerminateBackends{}.Drop(context.Background(), &fakeConn{server: server}, dbName)
	require.NoError(t, err)
	assert.Equal(t, 3, drops)
}

func TestTeardown_MissingDatabaseFailsFast(t *testing.T) {
	t.Parallel()

	strategies := map[string]testdb.TerminationStrategy{
		"terminate backends": testdb.TerminateBackends{},
		"force drop":         testdb.ForceDrop{},
	}

	for name, strategy := range strategies {
		name, strategy := name, strategy
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := &fakeServer{}
			server.exec = func(_ context.Context, sql string, _ ...any) error {
				if strings.HasPrefix(sql, "DROP DATABASE") {
					return newPgError("3D000")
				}
				return nil
			}

			c := &testdb.Coordinator{Connect: server.Connect, Strategy: strategy, Timeout: 5 * time.Second}

			start := time.Now()
			err := c.Release(dbName, admin, nil)
			require.Error(t, err)
			assert.Less(t, time.Since(start), time.Second)

			assert.ErrorIs(t, err, testdb.ErrDatabaseMissing)
			var tdErr *testdb.TeardownError
			require.ErrorAs(t, err, &tdErr)
			assert.Equal(t, testdb.StepDrop, tdErr.Step)
			assert.Equal(t, dbName, tdErr.Database)
		})
	}
}

func TestCoordinator_ClosesPoolBeforeConnecting(t *testing.T) {
	t.Parallel()

	server := &fakeServer{}
	pool := &fakePool{server: server}
	c := &testdb.Coordinator{Connect: server.Connect}

	require.NoError(t, c.Release(dbName, admin, pool))

	assert.EqualValues(t, 1, pool.closed.Load())
	events := server.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "pool_close", events[0])
	assert.Equal(t, "connect", events[1])
}

func TestCoordinator_BlocksUntilTeardownCompletes(t *testing.T) {
	t.Parallel()

	var finished atomic.Bool
	strategy := testdb.TerminationStrategyFunc(func(ctx context.Context, _ testdb.Executor, _ string) error {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	server := &fakeServer{}
	c := &testdb.Coordinator{Connect: server.Connect, Strategy: strategy}

	require.NoError(t, c.Release(dbName, admin, nil))
	assert.True(t, finished.Load(), "Release returned before teardown finished")
}

func TestCoordinator_UsesIndependentContext(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	var hasDeadline bool
	strategy := testdb.TerminationStrategyFunc(func(ctx context.Context, _ testdb.Executor, _ string) error {
		deadline, hasDeadline = ctx.Deadline()
		return ctx.Err()
	})

	server := &fakeServer{}
	c := &testdb.Coordinator{Connect: server.Connect, Strategy: strategy, Timeout: 10 * time.Second}

	require.NoError(t, c.Release(dbName, admin, nil))
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), deadline, 2*time.Second)
}

func TestCoordinator_DeadlineBoundsTeardown(t *testing.T) {
	t.Parallel()

	strategy := testdb.TerminationStrategyFunc(func(ctx context.Context, _ testdb.Executor, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	server := &fakeServer{}
	c := &testdb.Coordinator{Connect: server.Connect, Strategy: strategy, Timeout: 50 * time.Millisecond}

	start := time.Now()
	err := c.Release(dbName, admin, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var tdErr *testdb.TeardownError
	require.ErrorAs(t, err, &tdErr)
	assert.Equal(t, testdb.StepDrop, tdErr.Step)
}

func TestCoordinator_StuckTeardownTimesOut(t *testing.T) {
	t.Parallel()

	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })

	strategy := testdb.TerminationStrategyFunc(func(context.Context, testdb.Executor, string) error {
		<-unblock
		return nil
	})

	server := &fakeServer{}
	c := &testdb.Coordinator{Connect: server.Connect, Strategy: strategy, Timeout: 50 * time.Millisecond}

	err := c.Release(dbName, admin, nil)
	assert.ErrorIs(t, err, testdb.ErrTeardownTimeout)

	var tdErr *testdb.TeardownError
	require.ErrorAs(t, err, &tdErr)
	assert.Equal(t, testdb.StepWait, tdErr.Step)
}

func TestCoordinator_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	strategy := testdb.TerminationStrategyFunc(func(context.Context, testdb.Executor, string) error {
		panic("boom")
	})

	server := &fakeServer{}
	c := &testdb.Coordinator{Connect: server.Connect, Strategy: strategy}

	err := c.Release(dbName, admin, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	var tdErr *testdb.TeardownError
	require.ErrorAs(t, err, &tdErr)
	assert.Equal(t, testdb.StepRecover, tdErr.Step)
}

type panickingPool struct{}

func (panickingPool) Close() error { panic("pool exploded") }

type failingPool struct{}

func (failingPool) Close() error { return errors.New("close failed") }

func TestCoordinator_PoolCloseProblemsDoNotSkipDrop(t *testing.T) {
	t.Parallel()

	var nilDB *sql.DB
	tests := []struct {
		name string
		pool io.Closer
	}{
		{name: "typed nil sql.DB", pool: nilDB},
		{name: "close panics", pool: panickingPool{}},
		{name: "close fails", pool: failingPool{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			log, logBuf := logger.NewTestLogger(t)
			server := &fakeServer{}
			c := &testdb.Coordinator{Connect: server.Connect, Strategy: testdb.ForceDrop{}, Logger: log}

			require.NoError(t, c.Release(dbName, admin, tt.pool))

			assert.Equal(t, []string{
				"connect",
				`DROP DATABASE "` + dbName + `" WITH (FORCE)`,
				"close",
			}, server.Events())
			logger.AssertLogContains(t, logBuf, `"step":"close_pool"`)
		})
	}
}

func TestCoordinator_AdminConnectFailure(t *testing.T) {
	t.Parallel()

	server := &fakeServer{connectErr: errors.New("connection refused")}
	c := &testdb.Coordinator{Connect: server.Connect}

	err := c.Release(dbName, admin, nil)

	var tdErr *testdb.TeardownError
	require.ErrorAs(t, err, &tdErr)
	assert.Equal(t, testdb.StepAdminConnect, tdErr.Step)
	assert.Empty(t, server.Events())
}

func TestTeardownError_Unwrap(t *testing.T) {
	t.Parallel()

	err := &testdb.TeardownError{Database: dbName, Step: testdb.StepTerminate, Err: testdb.ErrDatabaseMissing}
	assert.ErrorIs(t, err, testdb.ErrDatabaseMissing)
	assert.Contains(t, err.Error(), dbName)
	assert.Contains(t, err.Error(), "terminate")
}
