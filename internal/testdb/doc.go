// Package testdb provisions an isolated, disposable PostgreSQL database per
// test and tears it down exactly once when the test ends.
//
// # Lifecycle
//
// Provision creates a database with a fresh UUID name, opens a pool to it and
// applies the embedded migrations. The returned Handle is shared by the server
// under test and by the test's own assertions.
//
// Handle.Release reclaims the database. It closes the pool, terminates every
// remaining session on the database and drops it. The work runs on its own
// goroutine with its own deadline, rooted in context.Background, so it does not
// depend on the test's context or the server's; Release blocks on a one-shot
// channel until that goroutine reports back. When Release returns, the
// database is gone or the failure is in the returned error.
//
// Only the first Release does any work. Later calls return ErrAlreadyReleased
// without touching the server.
//
// # Basic Usage
//
//	func TestSomething(t *testing.T) {
//	    h := testdb.New(t) // skips when no database is configured
//
//	    store := postgres.NewPostgresSubscriberStore(h.DB, nil)
//	    // ...
//	}
//
// New registers Release with t.Cleanup, so the database is dropped whether the
// test passes, fails or panics. Teardown failures are written to the test log
// and never change the test's verdict.
//
// # Environment Variables
//
// The administrative connection comes from DATABASE_URL (or
// NEWSLETTER_TEST_DB_URL). Without either, database tests are skipped.
// Integration tests additionally require the "integration" build tag:
//
//	go test -tags=integration ./...
package testdb
