// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels. Process-wide initialization goes through Init or
// InitForTests, both of which install the default logger at most once.
package logger
