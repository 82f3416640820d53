package ciutil

import (
	"log/slog"
	"os"
	"strings"
)

// Common environment variable names used across the codebase.
// These constants ensure consistent access and prevent typos.
const (
	// CI environment detection variables
	EnvCI              = "CI"
	EnvGitHubActions   = "GITHUB_ACTIONS"
	EnvGitHubWorkspace = "GITHUB_WORKSPACE"
	EnvGitLabCI        = "GITLAB_CI"
	EnvJenkinsURL      = "JENKINS_URL"
	EnvCircleCI        = "CIRCLECI"

	// Project-specific environment variables
	EnvProjectRoot = "NEWSLETTER_PROJECT_ROOT"

	// Database connection environment variables, preferred name first.
	EnvDatabaseURL       = "DATABASE_URL"
	EnvNewsletterTestURL = "NEWSLETTER_TEST_DB_URL"
)

// IsCI returns true if the current environment is a CI environment.
// It checks for common CI environment variables across different CI providers.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// GetEnvWithFallbacks returns the value of the first non-empty environment variable
// from the provided list. If no environment variables are set, it returns the defaultValue.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		if val := os.Getenv(envVar); val != "" {
			if i > 0 && logger != nil {
				logger.Warn("Using legacy environment variable",
					"used_var", envVar,
					"preferred_var", envVars[0],
					"value", MaskSensitiveValue(val),
				)
			}
			return val
		}
	}
	return defaultValue
}

// TestDatabaseURL returns the database URL configured for tests, or an empty
// string when none of DATABASE_URL / NEWSLETTER_TEST_DB_URL is set.
func TestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvDatabaseURL, EnvNewsletterTestURL}, "", logger)
}

// MaskSensitiveValue masks sensitive data in values like database URLs to prevent
// exposing credentials in logs. This should be used whenever potentially sensitive
// environment variable values are logged.
func MaskSensitiveValue(value string) string {
	if strings.HasPrefix(value, "postgres://") || strings.HasPrefix(value, "postgresql://") {
		scheme, rest, _ := strings.Cut(value, "://")
		userInfo, hostPart, found := strings.Cut(rest, "@")
		if !found {
			return value
		}
		username, _, hasPassword := strings.Cut(userInfo, ":")
		if !hasPassword {
			return value
		}
		return scheme + "://" + username + ":****@" + hostPart
	}

	// For non-database URL values that might contain tokens or keys
	if len(value) > 8 && (strings.Contains(value, "key") ||
		strings.Contains(value, "token") ||
		strings.Contains(value, "secret") ||
		strings.Contains(value, "password")) {
		return value[:4] + "****" + value[len(value)-4:]
	}

	return value
}
