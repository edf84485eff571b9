package cmd

import (
	"log/slog"
	"os"

	"github.com/USA-RedDragon/upmyfee/internal/config"
)

func setupLogging(level config.LogLevel) {
	var logLevel slog.Level
	switch level {
	case config.LogLevelDebug:
		logLevel = slog.LevelDebug
	case config.LogLevelWarn:
		logLevel = slog.LevelWarn
	case config.LogLevelError:
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
