package ciutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// GoModFile is the marker file for the project root.
const GoModFile = "go.mod"

// Common errors for project root detection
var (
	ErrProjectRootNotFound = errors.New("unable to find project root")
	ErrInvalidProjectRoot  = errors.New("invalid project root: no go.mod file found")
)

// FindProjectRoot returns the absolute path to the project root directory.
// It checks several sources in the following order:
//
// 1. NEWSLETTER_PROJECT_ROOT environment variable (explicit override)
// 2. GITHUB_WORKSPACE when running in GitHub Actions
// 3. Auto-detection by traversing directories upward looking for go.mod
func FindProjectRoot(logger *slog.Logger) (string, error) {
	if projectRoot := os.Getenv(EnvProjectRoot); projectRoot != "" {
		if !isValidProjectRoot(projectRoot) {
			return "", fmt.Errorf("%w at %s", ErrInvalidProjectRoot, projectRoot)
		}
		return projectRoot, nil
	}

	if workspace := os.Getenv(EnvGitHubWorkspace); workspace != "" && os.Getenv(EnvGitHubActions) != "" {
		if !isValidProjectRoot(workspace) {
			return "", fmt.Errorf("%w at %s", ErrInvalidProjectRoot, workspace)
		}
		return workspace, nil
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	return findProjectRootByTraversal(workingDir, logger)
}

// findProjectRootByTraversal looks for go.mod by traversing directories upward.
func findProjectRootByTraversal(startDir string, logger *slog.Logger) (string, error) {
	currentDir := startDir
	for {
		if fileExists(filepath.Join(currentDir, GoModFile)) {
			if logger != nil {
				logger.Debug("Found project root with go.mod", "project_root", currentDir)
			}
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrProjectRootNotFound
		}
		currentDir = parentDir
	}
}

// isValidProjectRoot checks if the given directory exists and contains a go.mod file.
func isValidProjectRoot(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	return fileExists(filepath.Join(dir, GoModFile))
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
