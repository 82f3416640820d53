package testdb

import (
	"github.com/phrazzld/newsletter-api/internal/ciutil"
	"github.com/phrazzld/newsletter-api/internal/config"
)

// IsIntegrationTestEnvironment returns true if a test database URL is set,
// indicating that integration tests can be run.
func IsIntegrationTestEnvironment() bool {
	return ciutil.TestDatabaseURL(nil) != ""
}

// ShouldSkipDatabaseTest returns true if no test database URL is set.
// This provides a consistent way for tests to check for database availability.
func ShouldSkipDatabaseTest() bool {
	return !IsIntegrationTestEnvironment()
}

// AdminSettings returns the administrative connection settings. A test
// database URL from the environment wins over the configuration files.
func AdminSettings() (config.DatabaseSettings, error) {
	if raw := ciutil.TestDatabaseURL(nil); raw != "" {
		return config.DatabaseSettingsFromURL(raw)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.DatabaseSettings{}, err
	}
	return cfg.Database, nil
}
