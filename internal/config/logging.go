package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr,
// JSON lines appended to logFile for later inspection. The returned cleanup
// closes the log file. If the file cannot be opened the logger degrades to
// stderr only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		stderrOnly := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(stderrOnly), func() error { return nil }
	}

	return newDualLogger(os.Stderr, file, level), file.Close
}

// SetupLoggerWithWriters is SetupLogger with both sinks injected, so tests
// can capture output without touching the filesystem.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return newDualLogger(stderr, file, level)
}

func newDualLogger(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}
