package config

import (
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: JSON to stdout, and additionally JSON
// to a file when one is configured. Returns the logger and a cleanup function
// to close the file.
func SetupLogger(cfg LoggingConfig, level slog.Level) (*slog.Logger, func() error) {
	stdoutHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	if cfg.File == "" {
		return slog.New(stdoutHandler), func() error { return nil }
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(stdoutHandler)
		logger.Error("failed to open log file, using stdout only", "error", err, "file", cfg.File)
		return logger, func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	logger := slog.New(slogmulti.Fanout(stdoutHandler, fileHandler))

	return logger, file.Close
}
