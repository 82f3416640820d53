package testdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/newsletter-api/internal/ciutil"
)

// Provision deadlines used by New. Shared CI runners get more headroom.
const (
	ProvisionTimeout   = 30 * time.Second
	CIProvisionTimeout = 90 * time.Second
)

func provisionTimeout() time.Duration {
	if ciutil.IsCI() {
		return CIProvisionTimeout
	}
	return ProvisionTimeout
}

// New provisions a database for t and registers its Release with t.Cleanup.
// The test is skipped when no database is configured and fails immediately
// when provisioning fails. Teardown failures are logged, not failed.
func New(t testing.TB, opts ...Option) *Handle {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL or NEWSLETTER_TEST_DB_URL not set - skipping integration test")
	}

	admin, err := AdminSettings()
	if err != nil {
		t.Fatalf("failed to resolve admin database settings: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout())
	defer cancel()

	h, err := Provision(ctx, admin, opts...)
	if err != nil {
		t.Fatalf("failed to provision test database: %v", err)
	}

	t.Cleanup(func() {
		ReleaseAndLog(t, h)
	})
	return h
}

// ReleaseAndLog releases h and writes any failure to the test log.
func ReleaseAndLog(t testing.TB, h *Handle) {
	t.Helper()
	if err := h.Release(); err != nil && !errors.Is(err, ErrAlreadyReleased) {
		t.Logf("WARNING: ephemeral database %s may have leaked: %v", h.Name, err)
	}
}
