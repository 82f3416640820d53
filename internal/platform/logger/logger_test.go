package logger_test

import (
	"log/slog"
	"testing"

	"github.com/phrazzld/newsletter-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", "debug", slog.LevelDebug, true},
		{"upper case", "INFO", slog.LevelInfo, true},
		{"warn", "warn", slog.LevelWarn, true},
		{"error", "Error", slog.LevelError, true},
		{"unknown falls back to info", "verbose", slog.LevelInfo, false},
		{"empty falls back to info", "", slog.LevelInfo, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := logger.ParseLevel(tc.input)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &logger.TestLogBuffer{}
	log := logger.New(buf, "warn")

	log.Info("hidden")
	log.Warn("shown", "component", "test")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[0]["level"])
	logger.AssertLogField(t, buf, "component", "test")
}

func TestInitForTestsIsIdempotent(t *testing.T) {
	first := logger.InitForTests()
	second := logger.InitForTests()

	require.NotNil(t, first)
	assert.Same(t, first, second, "the process-wide logger must be initialized once")
}

func TestSetupTestLoggerRestoresDefault(t *testing.T) {
	original := slog.Default()

	t.Run("capture", func(t *testing.T) {
		buf, _ := logger.SetupTestLogger(t)
		slog.Info("captured message")
		logger.AssertLogContains(t, buf, "captured message")
	})

	assert.Same(t, original, slog.Default())
}
