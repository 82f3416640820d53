package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/phrazzld/newsletter-api/internal/config"
)

// EnvTestLog turns on test log output when set to any value.
const EnvTestLog = "TEST_LOG"

var (
	initOnce   sync.Once
	initLogger *slog.Logger
)

// ParseLevel maps a configured level name to a slog.Level (case-insensitive).
// The second return value is false for unknown names, in which case info is used.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New creates a structured JSON logger writing to out at the given level.
func New(out io.Writer, levelName string) *slog.Logger {
	level, ok := ParseLevel(levelName)
	if !ok {
		// Create a temporary logger to output the warning
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", levelName,
			"default_level", "info")
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured JSON logger on stdout with
// the appropriate log level and sets it as the default logger for the application.
func Setup(cfg config.ApplicationSettings) (*slog.Logger, error) {
	logger := New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger, nil
}

// Init runs Setup exactly once per process. Later calls return the logger
// installed by the first call and ignore their argument.
func Init(cfg config.ApplicationSettings) *slog.Logger {
	initOnce.Do(func() {
		initLogger, _ = Setup(cfg)
	})
	return initLogger
}

// InitForTests installs the process-wide logger for a test binary exactly once.
// Output goes to stdout when TEST_LOG is set and is discarded otherwise, so
// test runs stay quiet unless someone asks for the logs.
func InitForTests() *slog.Logger {
	initOnce.Do(func() {
		var out io.Writer = io.Discard
		if os.Getenv(EnvTestLog) != "" {
			out = os.Stdout
		}
		initLogger = New(out, "debug")
		slog.SetDefault(initLogger)
	})
	return initLogger
}
