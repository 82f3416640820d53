// Package ciutil provides utilities for CI and environment-specific functionality.
//
// It centralizes environment detection (CI or local development), access to the
// environment variables used by tests and the test database harness, project root
// detection, and masking of sensitive values before they reach the logs.
package ciutil
