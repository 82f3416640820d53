// Package testutils starts a complete application against its own ephemeral
// database for end-to-end tests.
//
//	func TestSubscribe(t *testing.T) {
//	    app := testutils.SpawnApp(t)
//	    resp := app.PostSubscriptions(t, `{"name":"le guin","email":"ursula_le_guin@gmail.com"}`)
//	    // ...
//	}
//
// SpawnApp skips the test when no database is configured. Cleanup stops the
// server first and then drops the database, so the pool is idle by the time
// teardown terminates sessions.
package testutils
