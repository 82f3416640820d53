package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/newsletter-api/internal/app"
	"github.com/phrazzld/newsletter-api/internal/config"
	"github.com/phrazzld/newsletter-api/internal/platform/logger"
	"github.com/phrazzld/newsletter-api/internal/testdb"
	"github.com/stretchr/testify/require"
)

const (
	requestTimeout = 10 * time.Second
	stopTimeout    = 15 * time.Second
)

// TestApp is a running application bound to a random port and its own database.
type TestApp struct {
	// Address is the base URL, e.g. http://127.0.0.1:54321.
	Address string
	Port    int
	// DB is the pool the server uses; assertions may query it directly.
	DB *sql.DB
	// DBName is the ephemeral database's name.
	DBName string
	// Admin connects to the server without selecting a database.
	Admin config.DatabaseSettings

	client *http.Client
}

// SpawnApp provisions a database, starts the application on port 0 and
// registers cleanup that stops the server and then releases the database.
func SpawnApp(t *testing.T, opts ...testdb.Option) *TestApp {
	t.Helper()

	logger.InitForTests()

	if testdb.ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL or NEWSLETTER_TEST_DB_URL not set - skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err, "failed to load configuration")

	admin, err := testdb.AdminSettings()
	require.NoError(t, err, "failed to resolve admin database settings")

	provisionCtx, cancelProvision := context.WithTimeout(context.Background(), testdb.ProvisionTimeout)
	defer cancelProvision()

	handle, err := testdb.Provision(provisionCtx, admin, opts...)
	require.NoError(t, err, "failed to provision test database")

	cfg.Database = handle.Settings()
	cfg.Application.Host = "127.0.0.1"
	cfg.Application.Port = 0

	application, err := app.NewWithDB(cfg, handle.DB, nil)
	if err != nil {
		testdb.ReleaseAndLog(t, handle)
		t.Fatalf("failed to build application: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- application.RunUntilStopped(ctx) }()

	t.Cleanup(func() {
		stop()
		select {
		case err := <-stopped:
			if err != nil {
				t.Logf("WARNING: server did not stop cleanly: %v", err)
			}
		case <-time.After(stopTimeout):
			t.Logf("WARNING: server did not stop within %s", stopTimeout)
		}
		testdb.ReleaseAndLog(t, handle)
	})

	return &TestApp{
		Address: fmt.Sprintf("http://127.0.0.1:%d", application.Port()),
		Port:    application.Port(),
		DB:      handle.DB,
		DBName:  handle.Name,
		Admin:   handle.Admin,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// PostSubscriptions sends body as JSON to POST /subscriptions.
func (a *TestApp) PostSubscriptions(t *testing.T, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, a.Address+"/subscriptions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return a.do(t, req)
}

// GetHealth calls GET /health.
func (a *TestApp) GetHealth(t *testing.T) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, a.Address+"/health", nil)
	require.NoError(t, err)

	return a.do(t, req)
}

// do executes req and buffers the body so callers need not close it.
func (a *TestApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := a.client.Do(req)
	require.NoError(t, err, "failed to execute request")

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err, "failed to read response body")

	resp.Body = io.NopCloser(strings.NewReader(string(body)))
	return resp
}

// ReadBody returns the buffered response body.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
