package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// InitLogging initializes logging
func InitLogging(level string) {
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	logger.Info(fmt.Sprintf(format, v...))
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	logger.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf(format, v...))
}
