//go:build integration

package main

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/newsletter-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReturns200ForValidPayload(t *testing.T) {
	t.Parallel()

	app := testutils.SpawnApp(t)

	resp := app.PostSubscriptions(t, `{"name": "Tom Malone", "email": "tom@malone.com"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, testutils.ReadBody(t, resp))

	var email, name string
	err := app.DB.QueryRowContext(context.Background(),
		"SELECT email, name FROM subscriptions").Scan(&email, &name)
	require.NoError(t, err, "Failed to fetch saved subscription.")

	assert.Equal(t, "tom@malone.com", email)
	assert.Equal(t, "Tom Malone", name)
}

func TestSubscribeReturns400ForMissingData(t *testing.T) {
	t.Parallel()

	app := testutils.SpawnApp(t)

	testCases := []struct {
		body        string
		description string
	}{
		{`{"name": "Tom Malone"}`, "missing the email"},
		{`{"email": "tom@malone.com"}`, "missing the name"},
		{``, "missing email and name"},
	}

	for _, tc := range testCases {
		resp := app.PostSubscriptions(t, tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode,
			"The API did not fail with 400 Bad Request when the payload was %s", tc.description)
	}

	var n int
	require.NoError(t, app.DB.QueryRowContext(context.Background(),
		"SELECT count(*) FROM subscriptions").Scan(&n))
	assert.Zero(t, n)
}

func TestSubscribeReturns400WhenFieldsArePresentButInvalid(t *testing.T) {
	t.Parallel()

	app := testutils.SpawnApp(t)

	testCases := []struct {
		body        string
		description string
	}{
		{`{"name": "Tom {} esle", "email": "tom@malone.com"}`, "invalid chars { and } in name"},
		{`{"name": "   ", "email": "tom1@malone.com"}`, "just spaces in name"},
		{`{"name": "` + strings.Repeat("a", 257) + `", "email": "tom2@malone.com"}`, "name is too long"},
		{`{"name": "Tom Malone", "email": "not-an-email"}`, "malformed email"},
	}

	for _, tc := range testCases {
		resp := app.PostSubscriptions(t, tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode,
			"The API did not fail with 400 Bad Request when the payload was %s", tc.description)
	}
}

func TestSubscribeReturns500ForDuplicateEmail(t *testing.T) {
	t.Parallel()

	app := testutils.SpawnApp(t)

	body := `{"name": "Tom Malone", "email": "tom@malone.com"}`
	require.Equal(t, http.StatusOK, app.PostSubscriptions(t, body).StatusCode)
	assert.Equal(t, http.StatusInternalServerError, app.PostSubscriptions(t, body).StatusCode)
}

// The database must be gone once the test that owned it has finished.
func TestEphemeralDatabaseIsDroppedAfterTest(t *testing.T) {
	t.Parallel()

	var (
		dbName string
		admin  *testutils.TestApp
	)

	t.Run("owner", func(t *testing.T) {
		app := testutils.SpawnApp(t)
		dbName = app.DBName
		admin = app

		resp := app.PostSubscriptions(t, `{"name": "Tom Malone", "email": "tom@malone.com"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	if admin == nil {
		t.Skip("owner subtest did not provision a database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, admin.Admin.WithoutDB())
	require.NoError(t, err)
	defer func() { _ = conn.Close(context.Background()) }()

	var exists bool
	require.NoError(t, conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists))
	assert.False(t, exists, "database %s should have been dropped", dbName)
}
